// Package handlers implements the HTTP request handlers for the analysis API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verilex/policyaudit/pkg/errors"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an error to its HTTP status via the error-code table.
// Server-side failures are masked to their default message so internals never
// leak into API responses.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	resp := ErrorResponse{Code: code.String(), Message: err.Error()}
	if status >= http.StatusInternalServerError {
		resp.Message = errors.DefaultMessageForCode(code)
		resp.Detail = ""
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// respondValidation rejects a malformed request body.
func respondValidation(c *gin.Context, err error) {
	respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
}
