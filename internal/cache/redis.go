package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"usha_storefront/internal/models"

	"github.com/redis/go-redis/v9"
)

// Redis regroupe les usages Redis du service : diffusion du panier, rate limit
// et cache générique JSON.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func CartChannel(userID models.ID) string {
	return fmt.Sprintf("cart:%d", userID)
}

// CartChanged publie le panier faisant autorité sur cart:{userId}
func (r *Redis) CartChanged(ctx context.Context, userID models.ID, cart models.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, CartChannel(userID), payload).Err()
}

// SubscribeCart s'abonne aux changements du panier d'un utilisateur
func (r *Redis) SubscribeCart(ctx context.Context, userID models.ID) *redis.PubSub {
	return r.client.Subscribe(ctx, CartChannel(userID))
}

// --- Rate Limiting ---

// IncrementRateLimit incrémente le compteur de la fenêtre courante
func (r *Redis) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// --- Cache générique ---

func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// GetJSON retourne false sans erreur quand la clé est absente
func (r *Redis) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
