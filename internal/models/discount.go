package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Discount struct {
	ID              ID               `json:"id"`
	Code            string           `json:"code"`
	Description     string           `json:"description"`
	Value           decimal.Decimal  `json:"value"`
	EndDate         time.Time        `json:"end_date"`
	MinimumPurchase *decimal.Decimal `json:"minimumPurchase,omitempty"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount,omitempty"`
	ImageURL        string           `json:"imageUrl,omitempty"`
	IsActive        bool             `json:"isActive"`
}

// Available indique si la remise est active et non expirée à l'instant now
func (d Discount) Available(now time.Time) bool {
	return d.IsActive && (d.EndDate.IsZero() || d.EndDate.After(now))
}
