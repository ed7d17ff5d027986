package logging

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GinLogger logs each request through this package. Lookups are frequent, so
// successful requests go to DEBUG.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			Error("%s %s - %d (%v) - %s", c.Request.Method, path, status, time.Since(start), c.ClientIP())
		case status >= http.StatusBadRequest:
			Warn("%s %s - %d (%v) - %s", c.Request.Method, path, status, time.Since(start), c.ClientIP())
		default:
			Debug("%s %s - %d (%v) - %s", c.Request.Method, path, status, time.Since(start), c.ClientIP())
		}
	}
}

// GinRecovery turns a handler panic into a 500 and a CRIT log line.
func GinRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Crit("PANIC recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
