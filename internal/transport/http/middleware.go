package httpt

import (
	"net/http"
	"strings"
	"time"

	"orderdesk/internal/auth"
	"orderdesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

const _requestIDHeader = "X-Request-ID"

func (h *OrderHandler) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(_requestIDHeader)
		if requestID == "" {
			requestID = h.log.GenerateRequestID()
		}
		ctx := h.log.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(_requestIDHeader, requestID)

		c.Next()
	}
}

func (h *OrderHandler) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		h.log.LogAttrs(c.Request.Context(), logger.InfoLevel, "HTTP request",
			logger.String("method", method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", statusCode),
			logger.Duration("duration", latency),
			logger.String("client_ip", c.ClientIP()),
			logger.String("user_agent", c.Request.UserAgent()),
		)

		h.metrics.Request(method, path, statusCode, latency)

		if latency > _slowRequestThreshold {
			h.metrics.SlowRequest(method, path, statusCode, latency)
		}
	}
}

// authMiddleware turns the bearer access key into a session on the request
// context. Nothing behind it runs without one.
func (h *OrderHandler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearerToken(c.GetHeader("Authorization"))

		session, err := h.guard.Login(key)
		if err != nil {
			h.log.LogAttrs(c.Request.Context(), logger.WarnLevel, "unauthorized request",
				logger.String("path", c.Request.URL.Path),
				logger.Bool("key_present", key != ""),
				logger.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or missing access key. Please authenticate first.",
			})
			return
		}

		ctx := auth.WithSession(c.Request.Context(), session)
		ctx = logger.ContextWith(ctx, logger.String("session_id", session.ID.String()))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
