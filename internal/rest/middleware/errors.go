package middleware

import (
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandlerMiddleware converts errors attached by handlers into the
// standard error response body with the mapped status code.
func ErrorHandlerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= 500 {
			log.WithContext(c.Request.Context()).Errorw("request failed", "error", err)
		}
		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
