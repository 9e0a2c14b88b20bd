package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/pkg/errors"
)

// Recovery converts handler panics into a 500 JSON body instead of killing
// the connection.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic",
					logging.String("request_id", GetRequestID(c)),
					logging.String("path", c.Request.URL.Path),
					logging.Any("panic", r))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    errors.ErrCodeInternal.String(),
					"message": errors.DefaultMessageForCode(errors.ErrCodeInternal),
				})
			}
		}()
		c.Next()
	}
}
