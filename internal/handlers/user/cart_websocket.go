package user

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"usha_storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// CartSubscriber donne accès au canal Redis cart:{userId}
type CartSubscriber interface {
	SubscribeCart(ctx context.Context, userID models.ID) *redis.PubSub
}

// Upgrader : l'origine est déjà filtrée par le middleware CORS pour les appels XHR ;
// pour la WebSocket on vérifie contre la même liste.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
	}
}

// CartWebSocket pousse le panier faisant autorité à chaque mutation, y compris
// celles faites depuis un autre onglet ou une autre instance du serveur.
func (h *CartHandler) CartWebSocket(upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Sync == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Synchronisation du panier indisponible"})
			return
		}
		sess := h.Session(c)
		agg, ok := h.aggregator(c)
		if !ok {
			return
		}
		log := h.Log.With(zap.Stringer("user_id", sess.UserID))

		// s'abonner avant la lecture initiale : aucune mutation ne peut passer entre les deux
		ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
		defer cancel()
		pubsub := h.Sync.SubscribeCart(ctx, sess.UserID)
		defer pubsub.Close()
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Error("❌ Erreur abonnement Redis", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Synchronisation du panier indisponible"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("❌ Erreur upgrade WebSocket", zap.Error(err))
			return
		}
		defer conn.Close()

		// lecture : seulement pour détecter la fermeture côté client
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(v any) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(v); err != nil {
				log.Debug("❌ Erreur envoi WebSocket", zap.Error(err))
				return false
			}
			return true
		}

		if !send(gin.H{"type": "connected", "message": "Synchronisation panier activée"}) {
			return
		}
		if current, err := agg.Load(ctx, sess); err == nil {
			if !send(cartMessage(current)) {
				return
			}
		}

		ch := pubsub.Channel()
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var updated models.Cart
				if err := json.Unmarshal([]byte(msg.Payload), &updated); err != nil {
					log.Warn("⚠️ Panier illisible sur le canal", zap.Error(err))
					continue
				}
				if !send(cartMessage(updated)) {
					return
				}
			case <-ticker.C:
				// Ping pour garder la connexion active
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			}
		}
	}
}

func cartMessage(c models.Cart) gin.H {
	return gin.H{"type": "cart_updated", "cart": NewCartView(c, false)}
}
