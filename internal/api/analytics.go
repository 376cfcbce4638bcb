package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
)

func (c *Client) MonthlyRevenue(ctx context.Context, sess session.Context, year int) ([]models.MonthlyRevenue, error) {
	var out []models.MonthlyRevenue
	q := url.Values{"year": {strconv.Itoa(year)}}
	err := c.do(ctx, sess, http.MethodGet, "/payments/analytics/monthly-revenue?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) MostOrderedProducts(ctx context.Context, sess session.Context) ([]models.MostOrderedProduct, error) {
	var out []models.MostOrderedProduct
	err := c.do(ctx, sess, http.MethodGet, "/orders/analytics/most-ordered", nil, &out)
	return out, err
}

func (c *Client) CategoryStats(ctx context.Context, sess session.Context) ([]models.CategoryStats, error) {
	var out []models.CategoryStats
	err := c.do(ctx, sess, http.MethodGet, "/products/analytics/category-stats", nil, &out)
	return out, err
}
