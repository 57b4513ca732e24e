package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/contract-tester/common/graceful"
)

// GracefulTracker counts in-flight requests and refuses new runs once the server is draining.
func GracefulTracker() gin.HandlerFunc {
	return func(c *gin.Context) {
		if graceful.IsDraining() && c.Request.Method == http.MethodPost {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "server is shutting down",
			})
			return
		}
		done := graceful.BeginRequest()
		defer done()
		c.Next()
	}
}
