package payement

import (
	"usha_storefront/internal/checkout"
	"usha_storefront/internal/models"
)

func paymentIntent(res checkout.Result) models.PaymentIntent {
	return models.PaymentIntent{ClientSecret: res.ClientSecret, PaymentIntentID: res.PaymentIntentID}
}
