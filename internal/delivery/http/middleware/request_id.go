package middleware

import (
	"consultancy-backend/internal/domain"
	"consultancy-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(string(domain.KeyRequestID), id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(security.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
