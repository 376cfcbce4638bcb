package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
)

// ErrSuperseded : une actualisation plus récente a démarré, ou l'appelant a abandonné
var ErrSuperseded = errors.New("actualisation remplacée par une plus récente")

type LoadFunc func(ctx context.Context) ([]models.Order, error)

// Viewer garde la dernière liste chargée. Chaque Refresh prend un numéro de
// génération ; une réponse arrivée après une génération plus récente est jetée.
type Viewer struct {
	mu     sync.Mutex
	gen    uint64
	orders []models.Order
	load   LoadFunc
}

func NewViewer(load LoadFunc) *Viewer {
	return &Viewer{load: load}
}

func (v *Viewer) Refresh(ctx context.Context) ([]models.Order, error) {
	v.mu.Lock()
	v.gen++
	mine := v.gen
	load := v.load
	v.mu.Unlock()

	list, err := load(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if mine != v.gen || ctx.Err() != nil {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	v.orders = list
	return append([]models.Order(nil), list...), nil
}

// Orders retourne la dernière liste acceptée
func (v *Viewer) Orders() []models.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Order(nil), v.orders...)
}

// Viewers garde une vue par administrateur
type Viewers struct {
	mu       sync.Mutex
	service  *Service
	byUser   map[models.ID]*Viewer
	lastUsed map[models.ID]time.Time
	now      func() time.Time
}

func NewViewers(service *Service) *Viewers {
	return &Viewers{
		service:  service,
		byUser:   map[models.ID]*Viewer{},
		lastUsed: map[models.ID]time.Time{},
		now:      time.Now,
	}
}

// For retourne la vue de l'utilisateur ; le chargement utilise toujours la session courante
func (vs *Viewers) For(sess session.Context) *Viewer {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	v, ok := vs.byUser[sess.UserID]
	if !ok {
		v = &Viewer{}
		vs.byUser[sess.UserID] = v
	}
	vs.lastUsed[sess.UserID] = vs.now()
	v.mu.Lock()
	v.load = func(ctx context.Context) ([]models.Order, error) {
		return vs.service.ListAll(ctx, sess)
	}
	v.mu.Unlock()
	return v
}

func (vs *Viewers) Forget(userID models.ID) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	delete(vs.byUser, userID)
	delete(vs.lastUsed, userID)
}

// Sweep retire les vues non consultées depuis maxAge
func (vs *Viewers) Sweep(maxAge time.Duration) int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	removed := 0
	for id, at := range vs.lastUsed {
		if vs.now().Sub(at) > maxAge {
			delete(vs.byUser, id)
			delete(vs.lastUsed, id)
			removed++
		}
	}
	return removed
}

func (vs *Viewers) Len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.byUser)
}

func (vs *Viewers) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vs.Sweep(maxAge)
		}
	}
}
