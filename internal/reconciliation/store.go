package reconciliation

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"usha_storefront/internal/models"

	"github.com/gocql/gocql"
)

var ErrGapNotFound = errors.New("écart de réconciliation introuvable")

// Store conserve les écarts, un par intention de paiement
type Store interface {
	Save(ctx context.Context, gap models.ReconciliationGap) error
	Get(ctx context.Context, paymentIntentID string) (models.ReconciliationGap, error)
	List(ctx context.Context) ([]models.ReconciliationGap, error)
}

// MemoryStore sert quand ScyllaDB n'est pas configuré (et dans les tests)
type MemoryStore struct {
	mu   sync.RWMutex
	gaps map[string]models.ReconciliationGap
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{gaps: map[string]models.ReconciliationGap{}}
}

func (m *MemoryStore) Save(_ context.Context, gap models.ReconciliationGap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gaps[gap.PaymentIntentID] = gap
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (models.ReconciliationGap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gaps[id]
	if !ok {
		return models.ReconciliationGap{}, ErrGapNotFound
	}
	return g, nil
}

func (m *MemoryStore) List(_ context.Context) ([]models.ReconciliationGap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ReconciliationGap, 0, len(m.gaps))
	for _, g := range m.gaps {
		out = append(out, g)
	}
	sortGaps(out)
	return out, nil
}

// ScyllaStore écrit dans la table reconciliation_gaps
type ScyllaStore struct {
	session *gocql.Session
}

func NewScyllaStore(session *gocql.Session) *ScyllaStore {
	return &ScyllaStore{session: session}
}

const gapColumns = `payment_intent_id, id, user_id, amount_minor, last_error, attempts, resolved, created_at, resolved_at`

func (s *ScyllaStore) Save(ctx context.Context, g models.ReconciliationGap) error {
	var resolvedAt any
	if g.ResolvedAt != nil {
		resolvedAt = *g.ResolvedAt
	}
	return s.session.Query(`INSERT INTO reconciliation_gaps (`+gapColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.PaymentIntentID, g.ID, int64(g.UserID), g.AmountMinor, g.LastError,
		g.Attempts, g.Resolved, g.CreatedAt, resolvedAt,
	).WithContext(ctx).Exec()
}

func (s *ScyllaStore) Get(ctx context.Context, id string) (models.ReconciliationGap, error) {
	g, err := scanGap(s.session.Query(`SELECT `+gapColumns+` FROM reconciliation_gaps WHERE payment_intent_id = ?`, id).
		WithContext(ctx).Iter())
	if errors.Is(err, gocql.ErrNotFound) {
		return models.ReconciliationGap{}, ErrGapNotFound
	}
	return g, err
}

func (s *ScyllaStore) List(ctx context.Context) ([]models.ReconciliationGap, error) {
	iter := s.session.Query(`SELECT ` + gapColumns + ` FROM reconciliation_gaps`).WithContext(ctx).Iter()
	var out []models.ReconciliationGap
	for {
		g, ok := scanRow(iter)
		if !ok {
			break
		}
		out = append(out, g)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	sortGaps(out)
	return out, nil
}

func scanGap(iter *gocql.Iter) (models.ReconciliationGap, error) {
	g, ok := scanRow(iter)
	if err := iter.Close(); err != nil {
		return models.ReconciliationGap{}, err
	}
	if !ok {
		return models.ReconciliationGap{}, gocql.ErrNotFound
	}
	return g, nil
}

func scanRow(iter *gocql.Iter) (models.ReconciliationGap, bool) {
	var (
		g          models.ReconciliationGap
		userID     int64
		resolvedAt time.Time
	)
	if !iter.Scan(&g.PaymentIntentID, &g.ID, &userID, &g.AmountMinor, &g.LastError,
		&g.Attempts, &g.Resolved, &g.CreatedAt, &resolvedAt) {
		return g, false
	}
	g.UserID = models.ID(userID)
	if !resolvedAt.IsZero() {
		g.ResolvedAt = &resolvedAt
	}
	return g, true
}

// sortGaps : les plus anciens d'abord, l'ordre de traitement naturel
func sortGaps(list []models.ReconciliationGap) {
	slices.SortFunc(list, func(a, b models.ReconciliationGap) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.PaymentIntentID, b.PaymentIntentID)
	})
}
