package api

import (
	"context"
	"fmt"
	"net/http"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
)

func cartPath(userID models.ID) string {
	return fmt.Sprintf("/cart/%d", userID)
}

func (c *Client) GetCart(ctx context.Context, sess session.Context, userID models.ID) (models.Cart, error) {
	var cart models.Cart
	err := c.do(ctx, sess, http.MethodGet, cartPath(userID), nil, &cart)
	return cart, err
}

func (c *Client) AddCartItem(ctx context.Context, sess session.Context, userID models.ID, item models.CartItemInput) error {
	return c.do(ctx, sess, http.MethodPost, cartPath(userID)+"/items", item, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, sess session.Context, userID, itemID models.ID, item models.CartItemInput) error {
	return c.do(ctx, sess, http.MethodPatch, fmt.Sprintf("%s/items/%d", cartPath(userID), itemID), item, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, sess session.Context, userID, itemID models.ID) error {
	return c.do(ctx, sess, http.MethodDelete, fmt.Sprintf("%s/items/%d", cartPath(userID), itemID), nil, nil)
}

func (c *Client) ClearCart(ctx context.Context, sess session.Context, userID models.ID) error {
	return c.do(ctx, sess, http.MethodDelete, cartPath(userID), nil, nil)
}
