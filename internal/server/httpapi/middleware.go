package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// observe counts and times every request and writes an access log line.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		s.metrics.GetOrCreateCounter(fmt.Sprintf(`http_requests_total{method=%q,route=%q,code="%d"}`, c.Request.Method, route, status)).Inc()
		s.metrics.GetOrCreateHistogram(fmt.Sprintf(`http_request_duration_seconds{route=%q}`, route)).UpdateDuration(start)

		s.logger.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start))
	}
}

// timeout bounds the request context with Options.RequestTimeout.
func (s *Server) timeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.RequestTimeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
