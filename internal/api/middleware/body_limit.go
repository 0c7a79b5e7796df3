package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-service/pkg/response"
)

const msgBodyTooLarge = "Request body too large."

// BodyLimit 请求体大小限制中间件
// Content-Length 超限的请求直接拒绝；流式读取超限时
// 由 Handler 收到 *http.MaxBytesError 处理
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			c.Abort()
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
