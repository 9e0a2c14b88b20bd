package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeExternalService    ErrorCode = "COMMON_008"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_009"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_010"
)

// Corpus Module Error Codes
const (
	ErrCodeCorpusLoadFailed  ErrorCode = "CORP_001"
	ErrCodeCorpusParseFailed ErrorCode = "CORP_002"
	ErrCodeCorpusEmpty       ErrorCode = "CORP_003"
	ErrCodeArticleNotFound   ErrorCode = "CORP_004"
	ErrCodeDuplicateArticle  ErrorCode = "CORP_005"
)

// Retrieval Module Error Codes
const (
	ErrCodeLexicalIndexEmpty   ErrorCode = "RETR_001"
	ErrCodeEmbeddingFailed     ErrorCode = "RETR_002"
	ErrCodeVectorSearchFailed  ErrorCode = "RETR_003"
	ErrCodeKeywordSearchFailed ErrorCode = "RETR_004"
	ErrCodeRetrievalFailed     ErrorCode = "RETR_005"
)

// Scoring Module Error Codes
const (
	ErrCodeScoringFailed ErrorCode = "SCORE_001"
	ErrCodeEmptyScope    ErrorCode = "SCORE_002"
	ErrCodeJudgeRequired ErrorCode = "SCORE_003"
)

// Judge Module Error Codes
const (
	ErrCodeJudgeUnavailable ErrorCode = "JUDGE_001"
	ErrCodeJudgeTimeout     ErrorCode = "JUDGE_002"
	ErrCodeJudgeParseFailed ErrorCode = "JUDGE_003"
	ErrCodeJudgeDisabled    ErrorCode = "JUDGE_004"
)

// Aliases used by generic layers.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeFeatureDisabled:    http.StatusForbidden,

	ErrCodeCorpusLoadFailed:  http.StatusInternalServerError,
	ErrCodeCorpusParseFailed: http.StatusInternalServerError,
	ErrCodeCorpusEmpty:       http.StatusServiceUnavailable,
	ErrCodeArticleNotFound:   http.StatusNotFound,
	ErrCodeDuplicateArticle:  http.StatusConflict,

	ErrCodeLexicalIndexEmpty:   http.StatusServiceUnavailable,
	ErrCodeEmbeddingFailed:     http.StatusBadGateway,
	ErrCodeVectorSearchFailed:  http.StatusInternalServerError,
	ErrCodeKeywordSearchFailed: http.StatusInternalServerError,
	ErrCodeRetrievalFailed:     http.StatusInternalServerError,

	ErrCodeScoringFailed: http.StatusInternalServerError,
	ErrCodeEmptyScope:    http.StatusUnprocessableEntity,
	ErrCodeJudgeRequired: http.StatusServiceUnavailable,

	ErrCodeJudgeUnavailable: http.StatusServiceUnavailable,
	ErrCodeJudgeTimeout:     http.StatusGatewayTimeout,
	ErrCodeJudgeParseFailed: http.StatusBadGateway,
	ErrCodeJudgeDisabled:    http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeExternalService:    "external service error",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeFeatureDisabled:    "feature disabled",

	ErrCodeCorpusLoadFailed:  "failed to load article corpus",
	ErrCodeCorpusParseFailed: "failed to parse article corpus",
	ErrCodeCorpusEmpty:       "article corpus is empty",
	ErrCodeArticleNotFound:   "article not found",
	ErrCodeDuplicateArticle:  "duplicate article number",

	ErrCodeLexicalIndexEmpty:   "lexical index is empty",
	ErrCodeEmbeddingFailed:     "failed to embed text",
	ErrCodeVectorSearchFailed:  "vector search failed",
	ErrCodeKeywordSearchFailed: "keyword search failed",
	ErrCodeRetrievalFailed:     "hybrid retrieval failed",

	ErrCodeScoringFailed: "coverage scoring failed",
	ErrCodeEmptyScope:    "no articles in scoring scope",
	ErrCodeJudgeRequired: "judge required but unavailable",

	ErrCodeJudgeUnavailable: "judge unavailable",
	ErrCodeJudgeTimeout:     "judge call timed out",
	ErrCodeJudgeParseFailed: "failed to parse judge response",
	ErrCodeJudgeDisabled:    "judge disabled by configuration",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
