package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customization est la sélection envoyée avec une ligne de commande
type Customization struct {
	CustomizationOptionID ID     `json:"customization_option_id"`
	SelectedValue         string `json:"selected_value"`
}

type OrderItemInput struct {
	ProductID      ID              `json:"product_id"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations"`
}

// PaymentIntentRequest est le corps de POST /payments/create-intent.
// Amount est exprimé en unités mineures (centimes).
type PaymentIntentRequest struct {
	Amount     int64            `json:"amount"`
	UserID     ID               `json:"user_id"`
	OrderItems []OrderItemInput `json:"order_items"`
}

// PaymentIntent est le handle opaque émis par le service de paiement, consommé une seule fois
type PaymentIntent struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type PaymentCompletion struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

type PaymentRefund struct {
	PaymentID ID              `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

type PaymentUser struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type PaymentOrder struct {
	ID          ID              `json:"id"`
	OrderDate   time.Time       `json:"order_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
}

type Payment struct {
	ID            ID              `json:"id"`
	PaymentMethod string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	StripeID      string          `json:"stripe_id"`
	Status        string          `json:"status"`
	User          PaymentUser     `json:"user"`
	Order         PaymentOrder    `json:"order"`
}
