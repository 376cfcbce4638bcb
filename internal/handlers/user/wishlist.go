package user

import (
	"context"
	"net/http"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/handlers"
	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"github.com/gin-gonic/gin"
)

type WishlistService interface {
	GetWishlist(ctx context.Context, sess session.Context, userID models.ID) (models.Wishlist, error)
	AddWishlistItem(ctx context.Context, sess session.Context, userID, productID models.ID) error
	RemoveWishlistItem(ctx context.Context, sess session.Context, userID, itemID models.ID) error
	InWishlist(ctx context.Context, sess session.Context, userID, productID models.ID) (bool, error)
}

type WishlistHandler struct {
	*handlers.Base
	Wishlist WishlistService
}

func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	sess := h.Session(c)
	w, err := h.Wishlist.GetWishlist(c.Request.Context(), sess, sess.UserID)
	if err != nil {
		h.Fail(c, err)
		return
	}
	if w.Items == nil {
		w.Items = []models.WishlistItem{}
	}
	c.JSON(http.StatusOK, w)
}

// AddToWishlist est idempotent : un produit déjà présent n'est pas ajouté deux fois
func (h *WishlistHandler) AddToWishlist(c *gin.Context) {
	var input struct {
		ProductID models.ID `json:"productId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err)
		return
	}
	sess := h.Session(c)
	ctx := c.Request.Context()

	present, err := h.Wishlist.InWishlist(ctx, sess, sess.UserID, input.ProductID)
	if err != nil {
		h.Fail(c, err)
		return
	}
	if !present {
		if err := h.Wishlist.AddWishlistItem(ctx, sess, sess.UserID, input.ProductID); err != nil {
			h.Fail(c, err)
			return
		}
	}
	h.GetWishlist(c)
}

func (h *WishlistHandler) RemoveFromWishlist(c *gin.Context) {
	itemID, ok := h.IDParam(c, "itemId")
	if !ok {
		return
	}
	sess := h.Session(c)
	err := h.Wishlist.RemoveWishlistItem(c.Request.Context(), sess, sess.UserID, itemID)
	if err != nil && !apperr.IsNotFound(err) {
		h.Fail(c, err)
		return
	}
	h.GetWishlist(c)
}
