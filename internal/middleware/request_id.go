package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/pkg/idutil"
)

const ContextRequestIDKey = "request_id"

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = idutil.NewID()
		}
		c.Writer.Header().Set("X-Request-Id", reqID)
		c.Set(ContextRequestIDKey, reqID)
		c.Next()
	}
}
