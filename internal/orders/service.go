// Package orders expose les commandes : lecture client et administrateur,
// recherche, tri, regroupement et changements de statut.
package orders

import (
	"context"
	"fmt"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"go.uber.org/zap"
)

type DataService interface {
	ListOrders(ctx context.Context, sess session.Context) ([]models.Order, error)
	ListUserOrders(ctx context.Context, sess session.Context, userID models.ID) ([]models.Order, error)
	ListOrdersByStatus(ctx context.Context, sess session.Context, status models.OrderStatus) ([]models.Order, error)
	GetOrder(ctx context.Context, sess session.Context, id models.ID) (models.Order, error)
	UpdateOrderStatus(ctx context.Context, sess session.Context, id models.ID, status models.OrderStatus) error
}

// StatusNotifier prévient le client d'un changement de statut
type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, order models.Order) error
}

// Index est l'index de recherche plein texte des commandes
type Index interface {
	IndexOrders(ctx context.Context, orders []models.Order) error
	SearchOrderIDs(ctx context.Context, term string) ([]models.ID, error)
}

type Service struct {
	svc      DataService
	notifier StatusNotifier
	index    Index
	log      *zap.Logger
}

// NewService accepte notifier et index nil
func NewService(svc DataService, notifier StatusNotifier, index Index, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{svc: svc, notifier: notifier, index: index, log: log.Named("orders")}
}

func (s *Service) ListForUser(ctx context.Context, sess session.Context) ([]models.Order, error) {
	return s.svc.ListUserOrders(ctx, sess, sess.UserID)
}

func (s *Service) ListAll(ctx context.Context, sess session.Context) ([]models.Order, error) {
	return s.svc.ListOrders(ctx, sess)
}

func (s *Service) ListByStatus(ctx context.Context, sess session.Context, status models.OrderStatus) ([]models.Order, error) {
	if !status.Valid() {
		return nil, apperr.NewValidation(fmt.Sprintf("statut inconnu: %q", status))
	}
	return s.svc.ListOrdersByStatus(ctx, sess, status)
}

// Get : un acheteur ne voit que ses propres commandes
func (s *Service) Get(ctx context.Context, sess session.Context, id models.ID) (models.Order, error) {
	o, err := s.svc.GetOrder(ctx, sess, id)
	if err != nil {
		return models.Order{}, err
	}
	if !sess.IsAdmin() && o.User.ID != sess.UserID {
		return models.Order{}, &apperr.NotFoundError{Op: fmt.Sprintf("commande %d", id)}
	}
	return o, nil
}

// TransitionStatus envoie un unique PATCH puis relit la commande. Rejouer la même
// transition est sans effet supplémentaire côté service.
func (s *Service) TransitionStatus(ctx context.Context, sess session.Context, id models.ID, status models.OrderStatus) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, apperr.NewValidation(fmt.Sprintf("statut inconnu: %q", status))
	}
	if err := s.svc.UpdateOrderStatus(ctx, sess, id, status); err != nil {
		return models.Order{}, err
	}
	o, err := s.svc.GetOrder(ctx, sess, id)
	if err != nil {
		return models.Order{}, err
	}
	s.log.Info("✅ statut de commande mis à jour", zap.Stringer("order_id", id), zap.String("status", string(o.Status)))

	if s.notifier != nil {
		if err := s.notifier.OrderStatusChanged(ctx, o); err != nil {
			s.log.Warn("⚠️ notification de statut non envoyée", zap.Stringer("order_id", id), zap.Error(err))
		}
	}
	if s.index != nil {
		if err := s.index.IndexOrders(ctx, []models.Order{o}); err != nil {
			s.log.Warn("⚠️ indexation de la commande", zap.Stringer("order_id", id), zap.Error(err))
		}
	}
	return o, nil
}

// Search applique la vue demandée à toutes les commandes. La recherche texte
// passe par l'index quand il est disponible, sinon par le filtre en mémoire.
func (s *Service) Search(ctx context.Context, sess session.Context, q Query) ([]models.Order, error) {
	all, err := s.svc.ListOrders(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.Narrow(ctx, all, q), nil
}

// Narrow applique q à une liste déjà chargée
func (s *Service) Narrow(ctx context.Context, all []models.Order, q Query) []models.Order {
	if s.index == nil || q.Search == "" {
		return Apply(all, q)
	}
	if err := s.index.IndexOrders(ctx, all); err != nil {
		s.log.Warn("⚠️ index indisponible, recherche en mémoire", zap.Error(err))
		return Apply(all, q)
	}
	ids, err := s.index.SearchOrderIDs(ctx, q.Search)
	if err != nil {
		s.log.Warn("⚠️ recherche indexée échouée, recherche en mémoire", zap.Error(err))
		return Apply(all, q)
	}
	hit := make(map[models.ID]bool, len(ids))
	for _, id := range ids {
		hit[id] = true
	}
	matched := make([]models.Order, 0, len(ids))
	for _, o := range all {
		if hit[o.ID] {
			matched = append(matched, o)
		}
	}
	q.Search = ""
	return Apply(matched, q)
}

func (s *Service) Stats(ctx context.Context, sess session.Context) (Stats, error) {
	all, err := s.svc.ListOrders(ctx, sess)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(all), nil
}
