package middleware

import (
	"usha_storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID reprend l'en-tête X-Request-ID ou en génère un
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(utils.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
