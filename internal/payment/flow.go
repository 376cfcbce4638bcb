// Package payment pilote la confirmation d'une intention de paiement :
// une machine à états par intention, la finalisation auprès du service de
// données et l'enregistrement des écarts de réconciliation.
package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	AwaitingUserAction
	Confirming
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingUserAction:
		return "awaiting_user_action"
	case Confirming:
		return "confirming"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	RedirectTarget = "/customer/orders"
	RedirectDelay  = 3 * time.Second

	// ConfirmTimeout borne l'appel au prestataire, indépendamment de la requête HTTP
	ConfirmTimeout = 30 * time.Second
)

var (
	ErrNotReady              = errors.New("aucune intention de paiement affichée")
	ErrSubmissionInProgress  = errors.New("confirmation déjà en cours")
	ErrAlreadySucceeded      = errors.New("paiement déjà confirmé")
	ErrCancelWhileConfirming = errors.New("annulation impossible pendant la confirmation")
)

// Completer finalise la commande côté service de données
type Completer interface {
	CompletePayment(ctx context.Context, sess session.Context, paymentIntentID string) error
}

// GapRecorder conserve les paiements encaissés dont la finalisation a échoué
type GapRecorder interface {
	Record(ctx context.Context, gap models.ReconciliationGap) error
}

// Outcome décrit l'issue d'une soumission traitée : Err porte le refus
// (PaymentDeclinedError), l'indisponibilité du prestataire (NetworkError) ou
// l'écart de réconciliation. L'erreur renvoyée à côté
// par Submit signifie que la soumission n'a pas été traitée du tout.
type Outcome struct {
	State         State         `json:"state"`
	RedirectTo    string        `json:"redirectTo,omitempty"`
	RedirectAfter time.Duration `json:"-"`
	Err           error         `json:"-"`
}

type Flow struct {
	mu sync.Mutex

	state       State
	intent      models.PaymentIntent
	amountMinor int64
	owner       models.ID
	updatedAt   time.Time
	lastErr     error

	provider  Provider
	completer Completer
	gaps      GapRecorder
	log       *zap.Logger
	now       func() time.Time

	confirmTimeout time.Duration
}

func NewFlow(provider Provider, completer Completer, gaps GapRecorder, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		provider:  provider,
		completer: completer,
		gaps:      gaps,
		log:       log.Named("payment"),
		now:       time.Now,

		confirmTimeout: ConfirmTimeout,
	}
}

// Show : Idle -> AwaitingUserAction
func (f *Flow) Show(owner models.ID, intent models.PaymentIntent, amountMinor int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Idle {
		return ErrSubmissionInProgress
	}
	f.owner = owner
	f.intent = intent
	f.amountMinor = amountMinor
	f.setLocked(AwaitingUserAction)
	return nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Intent() models.PaymentIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intent
}

// LastError retourne le dernier refus, conservé pour l'affichage
func (f *Flow) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Submit confirme le paiement. Pendant Confirming, ou après Succeeded, une
// nouvelle soumission est ignorée : le prestataire et /payments/complete ne
// sont appelés qu'une fois.
func (f *Flow) Submit(ctx context.Context, sess session.Context, paymentMethodID string) (Outcome, error) {
	f.mu.Lock()
	switch f.state {
	case Idle:
		f.mu.Unlock()
		return Outcome{State: Idle}, ErrNotReady
	case Confirming:
		f.mu.Unlock()
		return Outcome{State: Confirming}, ErrSubmissionInProgress
	case Succeeded:
		f.mu.Unlock()
		return Outcome{State: Succeeded, RedirectTo: RedirectTarget, RedirectAfter: RedirectDelay}, ErrAlreadySucceeded
	}
	if f.provider == nil {
		f.mu.Unlock()
		return Outcome{State: f.state}, apperr.ErrPaymentUnavailable
	}
	f.setLocked(Confirming)
	f.lastErr = nil
	intentID := f.intent.PaymentIntentID
	f.mu.Unlock()

	log := f.log.With(zap.String("payment_intent_id", intentID), zap.Stringer("user_id", sess.UserID))

	// une fois la carte soumise, l'abandon du client ne doit pas couper l'appel au prestataire
	confirmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.confirmTimeout)
	err := f.provider.Confirm(confirmCtx, intentID, paymentMethodID)
	cancel()
	if err != nil {
		failure := providerFailure(err)
		var declined *apperr.PaymentDeclinedError
		if errors.As(failure, &declined) {
			log.Warn("💳 paiement refusé", zap.Error(err))
		} else {
			log.Error("❌ prestataire de paiement injoignable", zap.Error(err))
		}

		f.mu.Lock()
		f.setLocked(Failed)
		f.lastErr = failure
		// le même clientSecret peut être réessayé
		f.setLocked(AwaitingUserAction)
		f.mu.Unlock()
		return Outcome{State: Failed, Err: failure}, nil
	}

	// le paiement est acquis : la finalisation ne doit pas dépendre de la requête HTTP
	completeCtx := context.WithoutCancel(ctx)
	outcome := Outcome{State: Succeeded, RedirectTo: RedirectTarget, RedirectAfter: RedirectDelay}

	if err := f.completer.CompletePayment(completeCtx, sess, intentID); err != nil {
		gap := &apperr.ReconciliationGap{PaymentIntentID: intentID, Err: err}
		log.Error("🚨 paiement encaissé mais commande non finalisée", zap.Error(err))
		f.recordGap(completeCtx, sess, intentID, err)
		outcome.Err = gap
	} else {
		log.Info("✅ paiement confirmé et commande finalisée")
	}

	f.mu.Lock()
	f.setLocked(Succeeded)
	f.lastErr = outcome.Err
	f.mu.Unlock()
	return outcome, nil
}

// providerFailure garde un refus du prestataire tel quel ; toute autre erreur
// est une indisponibilité, pas un refus.
func providerFailure(err error) error {
	var (
		declined *apperr.PaymentDeclinedError
		network  *apperr.NetworkError
	)
	if errors.As(err, &declined) || errors.As(err, &network) {
		return err
	}
	return &apperr.NetworkError{Op: "confirmation du paiement", Err: err}
}

func (f *Flow) recordGap(ctx context.Context, sess session.Context, intentID string, cause error) {
	if f.gaps == nil {
		return
	}
	f.mu.Lock()
	amount := f.amountMinor
	f.mu.Unlock()

	gap := models.ReconciliationGap{
		ID:              uuid.NewString(),
		PaymentIntentID: intentID,
		UserID:          sess.UserID,
		AmountMinor:     amount,
		LastError:       cause.Error(),
		Attempts:        1,
		CreatedAt:       f.now().UTC(),
	}
	if err := f.gaps.Record(ctx, gap); err != nil {
		f.log.Error("❌ écart de réconciliation non enregistré", zap.String("payment_intent_id", intentID), zap.Error(err))
	}
}

// Cancel abandonne l'intention ; refusé pendant Confirming
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Confirming:
		return ErrCancelWhileConfirming
	case Succeeded:
		return ErrAlreadySucceeded
	}
	f.intent = models.PaymentIntent{}
	f.amountMinor = 0
	f.lastErr = nil
	f.setLocked(Idle)
	return nil
}

func (f *Flow) setLocked(s State) {
	f.state = s
	f.updatedAt = f.now()
}
