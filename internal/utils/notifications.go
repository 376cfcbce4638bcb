package utils

import (
	"bytes"
	"context"
	"html/template"

	"usha_storefront/internal/models"
	"usha_storefront/internal/orders"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">{{.Icon}} Order #{{.OrderID}}</h2>
		<p>Hello {{.FirstName}},</p>
		<p>{{.Message}}</p>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<tr><td><strong>Placed on</strong></td><td style="text-align: right;">{{.Date}}</td></tr>
			<tr><td><strong>Total</strong></td><td style="text-align: right;">{{.Total}}</td></tr>
			<tr><td><strong>Status</strong></td><td style="text-align: right; color: {{.Color}};">{{.Status}}</td></tr>
		</table>
		<p style="margin-top: 30px; color: #555;">Usha Customizations</p>
	</div>
</body>
</html>`))

var gapTemplate = template.Must(template.New("gap").Parse(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif;">
	<h2>🚨 Payment captured without order completion</h2>
	<table>
		<tr><td>Payment intent</td><td>{{.PaymentIntentID}}</td></tr>
		<tr><td>User</td><td>{{.UserID}}</td></tr>
		<tr><td>Amount</td><td>{{.Amount}}</td></tr>
		<tr><td>Error</td><td>{{.Error}}</td></tr>
		<tr><td>Recorded at</td><td>{{.CreatedAt}}</td></tr>
	</table>
	<p>Retry from the admin reconciliation page once the data service is healthy.</p>
</body>
</html>`))

// Notifier envoie les e-mails métier : changement de statut au client, alerte
// de réconciliation aux opérations.
type Notifier struct {
	mailer   *Mailer
	opsEmail string
	log      *zap.Logger
}

func NewNotifier(mailer *Mailer, opsEmail string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{mailer: mailer, opsEmail: opsEmail, log: log.Named("notifications")}
}

// OrderStatusChanged prévient le client du nouveau statut de sa commande
func (n *Notifier) OrderStatusChanged(ctx context.Context, order models.Order) error {
	if order.User.Email == "" {
		return nil
	}
	var buf bytes.Buffer
	err := statusTemplate.Execute(&buf, map[string]string{
		"Icon":      statusIcon(order.Status),
		"OrderID":   order.ID.String(),
		"FirstName": order.User.FirstName,
		"Message":   statusMessage(order.Status),
		"Date":      orders.FormatDate(order.OrderDate),
		"Total":     orders.FormatCurrency(order.TotalAmount),
		"Color":     statusColor(order.Status),
		"Status":    string(order.Status),
	})
	if err != nil {
		return err
	}
	if err := n.mailer.Send(ctx, order.User.Email, statusSubject(order.Status), buf.String()); err != nil {
		n.log.Error("❌ Erreur envoi email statut", zap.Stringer("order_id", order.ID), zap.Error(err))
		return err
	}
	n.log.Info("📧 Email de statut envoyé", zap.Stringer("order_id", order.ID), zap.String("status", string(order.Status)))
	return nil
}

// ReconciliationAlert prévient les opérations d'un paiement encaissé sans commande finalisée
func (n *Notifier) ReconciliationAlert(ctx context.Context, gap models.ReconciliationGap) error {
	if n.opsEmail == "" {
		n.log.Warn("⚠️ OPS_EMAIL absent, alerte de réconciliation non envoyée", zap.String("payment_intent_id", gap.PaymentIntentID))
		return nil
	}
	var buf bytes.Buffer
	err := gapTemplate.Execute(&buf, map[string]string{
		"PaymentIntentID": gap.PaymentIntentID,
		"UserID":          gap.UserID.String(),
		"Amount":          orders.FormatCurrency(decimal.New(gap.AmountMinor, -2)),
		"Error":           gap.LastError,
		"CreatedAt":       orders.FormatDate(gap.CreatedAt),
	})
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, n.opsEmail, "🚨 Reconciliation required: "+gap.PaymentIntentID, buf.String())
}

func statusSubject(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusConfirmed:
		return "✅ Your order is confirmed - Usha"
	case models.OrderStatusDelivered:
		return "🎉 Your order was delivered - Usha"
	case models.OrderStatusCancelled:
		return "❌ Order cancelled - Usha"
	default:
		return "📋 Order update - Usha"
	}
}

func statusMessage(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusPending:
		return "We received your order and will confirm it shortly."
	case models.OrderStatusConfirmed:
		return "Your order is confirmed and your customized items are being prepared."
	case models.OrderStatusDelivered:
		return "Your order was delivered. Enjoy!"
	case models.OrderStatusCancelled:
		return "Your order was cancelled. Contact us if this is unexpected."
	}
	return "Your order status changed."
}

func statusIcon(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusConfirmed:
		return "✅"
	case models.OrderStatusDelivered:
		return "🎉"
	case models.OrderStatusCancelled:
		return "❌"
	}
	return "⏳"
}

func statusColor(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusConfirmed:
		return "#2563eb"
	case models.OrderStatusDelivered:
		return "#16a34a"
	case models.OrderStatusCancelled:
		return "#dc2626"
	}
	return "#ca8a04"
}
