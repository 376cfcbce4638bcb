package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"go.uber.org/zap"
)

var (
	ErrFlowNotFound = errors.New("intention de paiement inconnue")
	ErrNotOwner     = errors.New("intention de paiement d'un autre utilisateur")
)

// Registry garde un flux par intention de paiement, lié à l'utilisateur qui l'a créée
type Registry struct {
	mu    sync.Mutex
	flows map[string]*Flow

	provider  Provider
	completer Completer
	gaps      GapRecorder
	log       *zap.Logger
}

func NewRegistry(provider Provider, completer Completer, gaps GapRecorder, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		flows:     map[string]*Flow{},
		provider:  provider,
		completer: completer,
		gaps:      gaps,
		log:       log,
	}
}

// Enabled vaut false quand aucun prestataire n'est configuré
func (r *Registry) Enabled() bool {
	return r.provider != nil
}

// Open crée le flux d'une nouvelle intention et l'affiche
func (r *Registry) Open(sess session.Context, intent models.PaymentIntent, amountMinor int64) (*Flow, error) {
	flow := NewFlow(r.provider, r.completer, r.gaps, r.log)
	if err := flow.Show(sess.UserID, intent, amountMinor); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.flows[intent.PaymentIntentID] = flow
	r.mu.Unlock()
	return flow, nil
}

func (r *Registry) Get(sess session.Context, intentID string) (*Flow, error) {
	r.mu.Lock()
	flow, ok := r.flows[intentID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrFlowNotFound
	}
	flow.mu.Lock()
	owner := flow.owner
	flow.mu.Unlock()
	if owner != sess.UserID {
		return nil, ErrNotOwner
	}
	return flow, nil
}

// Close annule le flux puis l'oublie
func (r *Registry) Close(sess session.Context, intentID string) error {
	flow, err := r.Get(sess, intentID)
	if err != nil {
		return err
	}
	if err := flow.Cancel(); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.flows, intentID)
	r.mu.Unlock()
	return nil
}

// Sweep oublie les flux inactifs depuis maxAge, sauf ceux en cours de confirmation
func (r *Registry) Sweep(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, flow := range r.flows {
		flow.mu.Lock()
		idle := flow.state != Confirming && flow.now().Sub(flow.updatedAt) > maxAge
		flow.mu.Unlock()
		if idle {
			delete(r.flows, id)
			removed++
		}
	}
	return removed
}

// Run balaie périodiquement le registre jusqu'à l'annulation du contexte
func (r *Registry) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(maxAge); n > 0 {
				r.log.Info("🧹 flux de paiement expirés retirés", zap.Int("count", n))
			}
		}
	}
}
