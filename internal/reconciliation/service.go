// Package reconciliation suit les paiements encaissés dont la commande n'a pas
// pu être finalisée, et permet à un administrateur de relancer la finalisation.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"go.uber.org/zap"
)

type Completer interface {
	CompletePayment(ctx context.Context, sess session.Context, paymentIntentID string) error
}

// Alerter prévient les opérations d'un nouvel écart
type Alerter interface {
	ReconciliationAlert(ctx context.Context, gap models.ReconciliationGap) error
}

type Service struct {
	store     Store
	completer Completer
	alerter   Alerter
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store Store, completer Completer, alerter Alerter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, completer: completer, alerter: alerter, log: log.Named("reconciliation"), now: time.Now}
}

// Record conserve l'écart et alerte. Un écart déjà connu pour la même intention
// garde sa date de création et cumule les tentatives.
func (s *Service) Record(ctx context.Context, gap models.ReconciliationGap) error {
	if gap.PaymentIntentID == "" {
		return errors.New("écart sans intention de paiement")
	}
	if gap.CreatedAt.IsZero() {
		gap.CreatedAt = s.now()
	}
	if gap.Attempts == 0 {
		gap.Attempts = 1
	}
	if prev, err := s.store.Get(ctx, gap.PaymentIntentID); err == nil {
		gap.ID = prev.ID
		gap.CreatedAt = prev.CreatedAt
		gap.Attempts += prev.Attempts
	}
	if err := s.store.Save(ctx, gap); err != nil {
		s.log.Error("❌ écart de réconciliation non enregistré",
			zap.String("payment_intent_id", gap.PaymentIntentID), zap.Error(err))
		return err
	}
	s.log.Warn("🚨 écart de réconciliation",
		zap.String("payment_intent_id", gap.PaymentIntentID),
		zap.Stringer("user_id", gap.UserID),
		zap.Int64("amount_minor", gap.AmountMinor),
		zap.String("error", gap.LastError))

	if s.alerter != nil {
		if err := s.alerter.ReconciliationAlert(ctx, gap); err != nil {
			s.log.Warn("⚠️ alerte de réconciliation non envoyée", zap.Error(err))
		}
	}
	return nil
}

// List retourne les écarts, seulement ceux non résolus si unresolved
func (s *Service) List(ctx context.Context, unresolved bool) ([]models.ReconciliationGap, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if !unresolved {
		return all, nil
	}
	open := make([]models.ReconciliationGap, 0, len(all))
	for _, g := range all {
		if !g.Resolved {
			open = append(open, g)
		}
	}
	return open, nil
}

// Retry relance POST /payments/complete. Un écart déjà résolu est retourné tel quel.
func (s *Service) Retry(ctx context.Context, sess session.Context, paymentIntentID string) (models.ReconciliationGap, error) {
	gap, err := s.store.Get(ctx, paymentIntentID)
	if errors.Is(err, ErrGapNotFound) {
		return models.ReconciliationGap{}, &apperr.NotFoundError{Op: fmt.Sprintf("écart %s", paymentIntentID)}
	}
	if err != nil {
		return models.ReconciliationGap{}, err
	}
	if gap.Resolved {
		return gap, nil
	}

	gap.Attempts++
	completeErr := s.completer.CompletePayment(ctx, sess, paymentIntentID)
	if completeErr == nil {
		now := s.now()
		gap.Resolved = true
		gap.ResolvedAt = &now
		gap.LastError = ""
	} else {
		gap.LastError = completeErr.Error()
	}
	if err := s.store.Save(ctx, gap); err != nil {
		return models.ReconciliationGap{}, err
	}

	if completeErr != nil {
		s.log.Warn("⚠️ relance de finalisation échouée",
			zap.String("payment_intent_id", paymentIntentID), zap.Int("attempts", gap.Attempts), zap.Error(completeErr))
		return gap, completeErr
	}
	s.log.Info("✅ écart de réconciliation résolu",
		zap.String("payment_intent_id", paymentIntentID), zap.Int("attempts", gap.Attempts))
	return gap, nil
}
