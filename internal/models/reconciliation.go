package models

import "time"

// ReconciliationGap : le paiement a réussi chez le prestataire mais
// POST /payments/complete a échoué, la commande n'est peut-être pas finalisée.
type ReconciliationGap struct {
	ID              string     `json:"id"`
	PaymentIntentID string     `json:"payment_intent_id"`
	UserID          ID         `json:"user_id"`
	AmountMinor     int64      `json:"amount_minor"`
	LastError       string     `json:"last_error"`
	Attempts        int        `json:"attempts"`
	Resolved        bool       `json:"resolved"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}
