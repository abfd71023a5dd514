package web

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// LoggerMiddleware logs every request through logrus, together with the
// errors attached to the context while handling it.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})

		if len(c.Errors) > 0 {
			for _, err := range c.Errors {
				entry.WithError(err.Err).Warn("request failed")
			}
			return
		}
		entry.Debug("request served")
	}
}
