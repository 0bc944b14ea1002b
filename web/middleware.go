package web

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/logkit/logging"
)

// RequestLogging 请求日志中间件
// 5xx 记为 Error，4xx 记为 Warn，其余记为 Info
func RequestLogging(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []logging.Field{
			{Key: "method", Value: c.Request.Method},
			{Key: "path", Value: path},
			{Key: "status", Value: status},
			{Key: "latency_ms", Value: time.Since(start).Milliseconds()},
			{Key: "client_ip", Value: c.ClientIP()},
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.Field{Key: "errors", Value: c.Errors.String()})
		}

		level := logging.LogLevelInfo
		switch {
		case status >= 500:
			level = logging.LogLevelError
		case status >= 400:
			level = logging.LogLevelWarn
		}

		logger.Log(level, "HTTP request", fields...)
	}
}
