package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"status", c.Writer.Status(),
			"path", c.Request.URL.Path,
			"took", time.Since(start),
		}
		if c.Errors != nil {
			attrs = append(attrs, "errors", c.Errors.String())
			slog.Warn("http request", attrs...)
			return
		}
		slog.Debug("http request", attrs...)
	}
}
