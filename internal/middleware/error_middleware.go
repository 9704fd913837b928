package middleware

import (
	"hivley/internal/transport/httpdto"
	"hivley/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler logs errors attached with c.Error. A handler that already
// wrote a response keeps it.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.WithContext(c.Request.Context()).Errorf("request error: %s %s: %s", c.Request.Method, c.Request.URL.Path, err.Error())
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(c.Writer.Status(), httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
