package middleware

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	requestCount    atomic.Int64
	requestDuration atomic.Int64 // in milliseconds
)

// Metrics records basic request counters.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		requestDuration.Add(time.Since(startTime).Milliseconds())
		requestCount.Add(1)
	}
}

// GetMetrics returns the current counters.
func GetMetrics() map[string]interface{} {
	count := requestCount.Load()
	duration := requestDuration.Load()

	avg := float64(0)
	if count > 0 {
		avg = float64(duration) / float64(count)
	}

	return map[string]interface{}{
		"request_count":       count,
		"request_duration_ms": duration,
		"avg_duration_ms":     avg,
	}
}

// ResetMetrics zeroes the counters.
func ResetMetrics() {
	requestCount.Store(0)
	requestDuration.Store(0)
}
