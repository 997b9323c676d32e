package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
)

// RequestIDMiddleware adds a unique request ID to each request
// If X-Request-ID header is present, it will be used; otherwise a new UUID is generated
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		withRequestID := logger.WithRequestID(requestID)
		clientIP := c.ClientIP()
		method := c.Request.Method
		path := c.Request.URL.Path

		logger.Log.Debug("request started",
			withRequestID,
			logger.WithIP(clientIP),
			zap.String("method", method),
			zap.String("path", path),
		)

		c.Next()

		statusCode := c.Writer.Status()
		logger.Log.Debug("request completed",
			withRequestID,
			logger.WithStatus(statusCode),
			zap.String("method", method),
			zap.String("path", path),
		)
	}
}
