package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
)

func (c *Client) ListOrders(ctx context.Context, sess session.Context) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, sess, http.MethodGet, "/orders", nil, &orders)
	return orders, err
}

func (c *Client) ListUserOrders(ctx context.Context, sess session.Context, userID models.ID) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, sess, http.MethodGet, fmt.Sprintf("/orders/user/%d", userID), nil, &orders)
	return orders, err
}

func (c *Client) ListOrdersByStatus(ctx context.Context, sess session.Context, status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, sess, http.MethodGet, "/orders/status/"+url.PathEscape(string(status)), nil, &orders)
	return orders, err
}

func (c *Client) GetOrder(ctx context.Context, sess session.Context, id models.ID) (models.Order, error) {
	var o models.Order
	err := c.do(ctx, sess, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &o)
	return o, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, sess session.Context, id models.ID, status models.OrderStatus) error {
	body := map[string]models.OrderStatus{"status": status}
	return c.do(ctx, sess, http.MethodPatch, fmt.Sprintf("/orders/%d/status", id), body, nil)
}
