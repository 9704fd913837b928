package middleware

import (
	"time"

	"hivley/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware writes one line per request: 5xx at error level,
// 4xx at warn.
func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		log := l.WithContext(c.Request.Context())
		line := "%s %s %d %s"
		args := []interface{}{c.Request.Method, c.Request.URL.Path, status, time.Since(start).String()}
		switch {
		case status >= 500:
			log.Errorf(line, args...)
		case status >= 400:
			log.Warnf(line, args...)
		default:
			log.Infof(line, args...)
		}
	}
}
