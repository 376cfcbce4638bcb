package api

import (
	"context"
	"fmt"
	"net/http"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
)

func (c *Client) CreatePaymentIntent(ctx context.Context, sess session.Context, req models.PaymentIntentRequest) (models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := c.do(ctx, sess, http.MethodPost, "/payments/create-intent", req, &intent)
	return intent, err
}

// CompletePayment finalise la commande côté service après confirmation du prestataire
func (c *Client) CompletePayment(ctx context.Context, sess session.Context, paymentIntentID string) error {
	return c.do(ctx, sess, http.MethodPost, "/payments/complete", models.PaymentCompletion{PaymentIntentID: paymentIntentID}, nil)
}

func (c *Client) RefundPayment(ctx context.Context, sess session.Context, refund models.PaymentRefund) error {
	return c.do(ctx, sess, http.MethodPost, "/payments/refund", refund, nil)
}

func (c *Client) ListPayments(ctx context.Context, sess session.Context) ([]models.Payment, error) {
	var payments []models.Payment
	err := c.do(ctx, sess, http.MethodGet, "/payments", nil, &payments)
	return payments, err
}

func (c *Client) GetPayment(ctx context.Context, sess session.Context, id models.ID) (models.Payment, error) {
	var p models.Payment
	err := c.do(ctx, sess, http.MethodGet, fmt.Sprintf("/payments/%d", id), nil, &p)
	return p, err
}
