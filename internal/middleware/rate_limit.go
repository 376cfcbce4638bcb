package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Counter compte les requêtes d'une clé sur une fenêtre (Redis INCR + EXPIRE)
type Counter interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// PayRateLimit limite les soumissions de paiement par utilisateur (anti double-clic
// et anti-spam). Sans Redis, ou si Redis ne répond pas, la requête passe.
func PayRateLimit(counter Counter, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}
		sess := CurrentSession(c)
		key := "pay_attempts:" + sess.UserID.String()

		n, err := counter.IncrementRateLimit(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("⚠️ rate limit indisponible", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if n > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives de paiement. Réessayez dans %d secondes", int(window.Seconds())),
				"retry_after": int(window.Seconds()),
			})
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(limit)-n, 10))
		c.Next()
	}
}
