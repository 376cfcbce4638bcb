// Package checkout transforme un panier validé en intention de paiement.
package checkout

import (
	"context"
	"sort"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/cart"
	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, sess session.Context, req models.PaymentIntentRequest) (models.PaymentIntent, error)
}

// Result est remis au flux de confirmation de paiement
type Result struct {
	ClientSecret    string          `json:"clientSecret"`
	PaymentIntentID string          `json:"paymentIntentId"`
	DisplayTotal    decimal.Decimal `json:"displayTotal"`
	AmountMinor     int64           `json:"amountMinor"`
}

type Initiator struct {
	payments PaymentService
	log      *zap.Logger
}

func NewInitiator(payments PaymentService, log *zap.Logger) *Initiator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Initiator{payments: payments, log: log.Named("checkout")}
}

// InitiateCheckout vérifie le panier puis demande une intention de paiement.
// Aucune relance automatique : un nouvel appel demande simplement une nouvelle intention.
func (i *Initiator) InitiateCheckout(ctx context.Context, sess session.Context, c models.Cart) (Result, error) {
	if err := Validate(c); err != nil {
		return Result{}, err
	}

	total := cart.Total(c)
	req := models.PaymentIntentRequest{
		Amount:     cart.MinorUnits(total),
		UserID:     sess.UserID,
		OrderItems: OrderItems(c),
	}

	intent, err := i.payments.CreatePaymentIntent(ctx, sess, req)
	if err != nil {
		i.log.Error("❌ création de l'intention de paiement échouée", zap.Stringer("user_id", sess.UserID), zap.Error(err))
		return Result{}, &apperr.CheckoutInitiationError{Err: err}
	}

	i.log.Info("✅ intention de paiement créée",
		zap.String("payment_intent_id", intent.PaymentIntentID),
		zap.Int64("amount", req.Amount),
		zap.Stringer("user_id", sess.UserID))

	return Result{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.PaymentIntentID,
		DisplayTotal:    total,
		AmountMinor:     req.Amount,
	}, nil
}

// Validate : panier non vide et options obligatoires toutes renseignées
func Validate(c models.Cart) error {
	if len(c.Items) == 0 {
		return apperr.NewValidation("panier vide")
	}
	if missing := cart.MissingSelections(c); len(missing) > 0 {
		return apperr.NewValidation(missing...)
	}
	return nil
}

// OrderItems construit les lignes de commande ; les sélections sont référencées
// par l'id de l'option, triées pour un corps de requête stable.
func OrderItems(c models.Cart) []models.OrderItemInput {
	items := make([]models.OrderItemInput, 0, len(c.Items))
	for _, it := range c.Items {
		out := models.OrderItemInput{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			Customizations: []models.Customization{},
		}
		if it.Product != nil {
			for name, value := range it.CustomizationData {
				opt, ok := it.Product.Option(name)
				if !ok || value == "" {
					continue
				}
				out.Customizations = append(out.Customizations, models.Customization{
					CustomizationOptionID: opt.ID,
					SelectedValue:         value,
				})
			}
			sort.Slice(out.Customizations, func(a, b int) bool {
				return out.Customizations[a].CustomizationOptionID < out.Customizations[b].CustomizationOptionID
			})
		}
		items = append(items, out)
	}
	return items
}
