package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/metrics"
	"github.com/gin-gonic/gin"
)

const unmatchedPath = "unmatched"

// Metrics records latency and count per route template. CORS preflights are
// not counted; they never reach a handler and would only add noise.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPreflight(c.Request) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	}
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions &&
		r.Header.Get("Origin") != "" &&
		r.Header.Get("Access-Control-Request-Method") != ""
}
