package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
)

func (c *Client) GetWishlist(ctx context.Context, sess session.Context, userID models.ID) (models.Wishlist, error) {
	var w models.Wishlist
	err := c.do(ctx, sess, http.MethodGet, fmt.Sprintf("/wishlist/%d", userID), nil, &w)
	return w, err
}

func (c *Client) AddWishlistItem(ctx context.Context, sess session.Context, userID, productID models.ID) error {
	return c.do(ctx, sess, http.MethodPost, fmt.Sprintf("/wishlist/%d/items", userID), models.WishlistItem{ProductID: productID}, nil)
}

func (c *Client) RemoveWishlistItem(ctx context.Context, sess session.Context, userID, itemID models.ID) error {
	return c.do(ctx, sess, http.MethodDelete, fmt.Sprintf("/wishlist/%d/items/%d", userID, itemID), nil, nil)
}

// InWishlist interroge GET /wishlist/{userId}/check/{productId}
func (c *Client) InWishlist(ctx context.Context, sess session.Context, userID, productID models.ID) (bool, error) {
	var raw json.RawMessage
	if err := c.do(ctx, sess, http.MethodGet, fmt.Sprintf("/wishlist/%d/check/%d", userID, productID), nil, &raw); err != nil {
		return false, err
	}
	// le service renvoie soit un booléen nu, soit {"inWishlist": bool}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b, nil
	}
	var res struct {
		InWishlist bool `json:"inWishlist"`
	}
	_ = json.Unmarshal(raw, &res)
	return res.InWishlist, nil
}
