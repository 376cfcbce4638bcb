package middleware

import (
	"errors"
	"net/http"

	"usha_storefront/internal/session"
	"usha_storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthRequired relit la session du cookie à chaque requête et la place dans le
// contexte gin. Une session expirée efface le cookie.
func AuthRequired(store *session.Store, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Load(c.Request)
		if err != nil {
			if errors.Is(err, session.ErrExpired) {
				log.Info("⏰ session expirée", zap.String("request_id", c.GetString(utils.RequestIDKey)))
				_ = store.Clear(c.Writer, c.Request)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
			c.Abort()
			return
		}
		c.Set(utils.SessionKey, sess)
		c.Next()
	}
}

// CurrentSession retourne la session posée par AuthRequired
func CurrentSession(c *gin.Context) session.Context {
	v, _ := c.Get(utils.SessionKey)
	sess, _ := v.(session.Context)
	return sess
}
