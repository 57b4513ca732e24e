package helper

import (
	"fmt"

	"github.com/songquanpeng/contract-tester/common/random"
)

// RequestIdKey is both the gin context key and the response header carrying the request id.
const RequestIdKey = "X-Contract-Tester-Request-Id"

// GenRequestID returns a sortable, unique request id.
func GenRequestID() string {
	return sortableNow() + random.GetRandomString(8)
}

// MessageWithRequestId appends the request id so users can quote it when reporting errors.
func MessageWithRequestId(message string, id string) string {
	if id == "" {
		return message
	}
	return fmt.Sprintf("%s (request id: %s)", message, id)
}
