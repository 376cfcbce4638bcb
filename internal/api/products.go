package api

import (
	"context"
	"fmt"
	"net/http"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
)

func (c *Client) ListProducts(ctx context.Context, sess session.Context) ([]models.Product, error) {
	var products []models.Product
	err := c.do(ctx, sess, http.MethodGet, "/products", nil, &products)
	return products, err
}

func (c *Client) GetProduct(ctx context.Context, sess session.Context, id models.ID) (models.Product, error) {
	var p models.Product
	err := c.do(ctx, sess, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &p)
	return p, err
}

func (c *Client) ListDiscounts(ctx context.Context, sess session.Context) ([]models.Discount, error) {
	var discounts []models.Discount
	err := c.do(ctx, sess, http.MethodGet, "/discounts", nil, &discounts)
	return discounts, err
}
