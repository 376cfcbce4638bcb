package payment

import (
	"context"
	"errors"

	"usha_storefront/internal/apperr"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"go.uber.org/zap"
)

// Provider confirme une intention de paiement auprès du prestataire.
// nil signifie que le paiement est acquis.
type Provider interface {
	Confirm(ctx context.Context, intentID, paymentMethodID string) error
}

// StripeProvider utilise la clé globale stripe.Key, initialisée au démarrage
type StripeProvider struct {
	log *zap.Logger
}

func NewStripeProvider(log *zap.Logger) *StripeProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &StripeProvider{log: log.Named("stripe")}
}

// codeUnexpectedState : Stripe refuse de reconfirmer une intention déjà encaissée
const codeUnexpectedState = "payment_intent_unexpected_state"

// Confirm confirme l'intention côté serveur quand un moyen de paiement est fourni ;
// sinon le widget navigateur a déjà confirmé et on vérifie seulement le statut.
// Quand l'issue de la confirmation est incertaine (réponse perdue, intention déjà
// confirmée), l'intention est relue : un paiement encaissé n'est jamais un refus.
func (p *StripeProvider) Confirm(ctx context.Context, intentID, paymentMethodID string) error {
	if paymentMethodID == "" {
		pi, err := p.retrieve(ctx, intentID)
		if err != nil {
			return p.classify(intentID, err)
		}
		return checkStatus(pi)
	}

	params := &stripe.PaymentIntentConfirmParams{PaymentMethod: stripe.String(paymentMethodID)}
	params.Context = ctx
	pi, err := paymentintent.Confirm(intentID, params)
	if err == nil {
		return checkStatus(pi)
	}
	if uncertain(err) {
		if current, gerr := p.retrieve(ctx, intentID); gerr == nil && checkStatus(current) == nil {
			p.log.Info("✅ intention déjà encaissée malgré l'erreur de confirmation",
				zap.String("payment_intent_id", intentID), zap.Error(err))
			return nil
		} else if gerr != nil {
			p.log.Warn("⚠️ relecture de l'intention impossible",
				zap.String("payment_intent_id", intentID), zap.Error(gerr))
		}
	}
	return p.classify(intentID, err)
}

func (p *StripeProvider) retrieve(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(intentID, params)
}

// uncertain : erreur de transport, 5xx, ou intention déjà confirmée par un essai précédent
func uncertain(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return true
	}
	return string(se.Code) == codeUnexpectedState || se.HTTPStatusCode >= 500
}

func checkStatus(pi *stripe.PaymentIntent) error {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		return nil
	}
	msg := "paiement non abouti"
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		msg = pi.LastPaymentError.Msg
	}
	return &apperr.PaymentDeclinedError{Code: string(pi.Status), Message: msg}
}

func (p *StripeProvider) classify(intentID string, err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		p.log.Error("❌ Stripe injoignable", zap.String("payment_intent_id", intentID), zap.Error(err))
		return &apperr.NetworkError{Op: "stripe confirm", Err: err}
	}
	p.log.Warn("⚠️ confirmation refusée par Stripe",
		zap.String("payment_intent_id", intentID),
		zap.String("type", string(se.Type)),
		zap.String("code", string(se.Code)),
		zap.String("decline_code", string(se.DeclineCode)))

	code := string(se.Code)
	if se.DeclineCode != "" {
		code = string(se.DeclineCode)
	}
	return &apperr.PaymentDeclinedError{Code: code, Message: se.Msg, Err: err}
}
