package middleware

import (
	"log/slog"
	"time"

	"consultancy-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AccessLog writes one structured line per request. Bodies and query strings are never logged.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		reqID, _ := c.Get("RequestID")
		logger.Log.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"request_id", reqID,
		)
	}
}
