package handlers

import (
	"context"
	"net/http"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"github.com/gin-gonic/gin"
)

type Catalog interface {
	Products(ctx context.Context, sess session.Context) ([]models.Product, error)
	Discounts(ctx context.Context, sess session.Context) ([]models.Discount, error)
	Invalidate(ctx context.Context) error
}

// ImageSigner remplace les chemins d'images par des URL signées
type ImageSigner interface {
	SignProducts(ctx context.Context, products []models.Product)
}

// CatalogHandler sert produits et remises ; la session est facultative
type CatalogHandler struct {
	*Base
	Catalog Catalog
	Images  ImageSigner
}

func (h *CatalogHandler) optionalSession(c *gin.Context) session.Context {
	sess, _ := h.Sessions.Load(c.Request)
	return sess
}

func (h *CatalogHandler) GetAllProducts(c *gin.Context) {
	products, err := h.Catalog.Products(c.Request.Context(), h.optionalSession(c))
	if err != nil {
		h.Fail(c, err)
		return
	}
	if h.Images != nil {
		h.Images.SignProducts(c.Request.Context(), products)
	}
	c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) GetDiscounts(c *gin.Context) {
	discounts, err := h.Catalog.Discounts(c.Request.Context(), h.optionalSession(c))
	if err != nil {
		h.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, discounts)
}

// InvalidateCache force la relecture du catalogue au prochain appel (admin)
func (h *CatalogHandler) InvalidateCache(c *gin.Context) {
	if err := h.Catalog.Invalidate(c.Request.Context()); err != nil {
		h.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
