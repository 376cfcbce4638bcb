package cache

import (
	"context"
	"time"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"go.uber.org/zap"
)

const (
	ProductCacheTTL  = 10 * time.Minute
	DiscountCacheTTL = 5 * time.Minute

	productsKey  = "catalog:products"
	discountsKey = "catalog:discounts"
)

// CatalogSource est la source faisant autorité (le service de données)
type CatalogSource interface {
	ListProducts(ctx context.Context, sess session.Context) ([]models.Product, error)
	ListDiscounts(ctx context.Context, sess session.Context) ([]models.Discount, error)
}

// Catalog sert la vitrine produits et remises depuis Redis quand c'est possible.
// Le panier et le checkout lisent toujours les produits à la source.
type Catalog struct {
	source CatalogSource
	redis  *Redis
	log    *zap.Logger
}

// NewCatalog accepte un Redis nil : toutes les lectures vont alors à la source
func NewCatalog(source CatalogSource, redis *Redis, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{source: source, redis: redis, log: log.Named("catalog")}
}

// Products ne retourne que les produits actifs
func (c *Catalog) Products(ctx context.Context, sess session.Context) ([]models.Product, error) {
	var products []models.Product
	if c.redis != nil {
		if ok, err := c.redis.GetJSON(ctx, productsKey, &products); err == nil && ok {
			return products, nil
		} else if err != nil {
			c.log.Warn("⚠️ lecture cache produits", zap.Error(err))
		}
	}

	all, err := c.source.ListProducts(ctx, sess)
	if err != nil {
		return nil, err
	}
	products = make([]models.Product, 0, len(all))
	for _, p := range all {
		if p.IsActive {
			products = append(products, p)
		}
	}
	if c.redis != nil {
		if err := c.redis.SetJSON(ctx, productsKey, products, ProductCacheTTL); err != nil {
			c.log.Warn("⚠️ écriture cache produits", zap.Error(err))
		}
	}
	return products, nil
}

// Discounts ne retourne que les remises actives et non expirées
func (c *Catalog) Discounts(ctx context.Context, sess session.Context) ([]models.Discount, error) {
	var discounts []models.Discount
	cached := false
	if c.redis != nil {
		ok, err := c.redis.GetJSON(ctx, discountsKey, &discounts)
		if err != nil {
			c.log.Warn("⚠️ lecture cache remises", zap.Error(err))
		}
		cached = ok
	}
	if !cached {
		var err error
		if discounts, err = c.source.ListDiscounts(ctx, sess); err != nil {
			return nil, err
		}
		if c.redis != nil {
			if err := c.redis.SetJSON(ctx, discountsKey, discounts, DiscountCacheTTL); err != nil {
				c.log.Warn("⚠️ écriture cache remises", zap.Error(err))
			}
		}
	}

	now := time.Now()
	out := make([]models.Discount, 0, len(discounts))
	for _, d := range discounts {
		if d.Available(now) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Invalidate vide le cache catalogue
func (c *Catalog) Invalidate(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Delete(ctx, productsKey); err != nil {
		return err
	}
	return c.redis.Delete(ctx, discountsKey)
}
