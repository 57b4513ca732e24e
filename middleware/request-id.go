package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/contract-tester/common/helper"
)

var clientRequestId = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestId tags the request and its response with an id. A well-formed id sent by
// the client is reused so its logs can be correlated.
func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(helper.RequestIdKey)
		if !clientRequestId.MatchString(id) {
			id = helper.GenRequestID()
		}
		c.Set(helper.RequestIdKey, id)
		c.Header(helper.RequestIdKey, id)
		c.Next()
	}
}
