package middleware

import (
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/contract-tester/common/helper"
)

// AbortWithError aborts the request with the API's error envelope.
// Client errors log at Warn, server errors at Error.
func AbortWithError(c *gin.Context, statusCode int, err error) {
	logger := gmw.GetLogger(c)
	if statusCode < 500 {
		logger.Warn("request rejected", zap.Int("status_code", statusCode), zap.Error(err))
	} else {
		logger.Error("server abort", zap.Int("status_code", statusCode), zap.Error(err))
	}

	c.AbortWithStatusJSON(statusCode, gin.H{
		"success": false,
		"message": helper.MessageWithRequestId(err.Error(), c.GetString(helper.RequestIdKey)),
	})
}
