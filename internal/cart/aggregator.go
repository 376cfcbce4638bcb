// Package cart maintient le panier d'un utilisateur : chaque mutation part au
// service de données, puis le panier faisant autorité est relu.
package cart

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DataService couvre les appels panier et catalogue du service de données
type DataService interface {
	GetCart(ctx context.Context, sess session.Context, userID models.ID) (models.Cart, error)
	AddCartItem(ctx context.Context, sess session.Context, userID models.ID, item models.CartItemInput) error
	UpdateCartItem(ctx context.Context, sess session.Context, userID, itemID models.ID, item models.CartItemInput) error
	RemoveCartItem(ctx context.Context, sess session.Context, userID, itemID models.ID) error
	ClearCart(ctx context.Context, sess session.Context, userID models.ID) error
	GetProduct(ctx context.Context, sess session.Context, id models.ID) (models.Product, error)
}

// Notifier diffuse le panier faisant autorité après chaque mutation
type Notifier interface {
	CartChanged(ctx context.Context, userID models.ID, cart models.Cart) error
}

// MutationResult : Cart est toujours le dernier panier faisant autorité.
// Stale signale que la relecture a échoué et que Cart peut être en retard.
type MutationResult struct {
	Cart  models.Cart
	Stale bool
	Err   error
}

type Aggregator struct {
	mu       sync.Mutex
	userID   models.ID
	svc      DataService
	notifier Notifier
	log      *zap.Logger

	cart   models.Cart
	loaded bool
	stale  bool
}

func NewAggregator(userID models.ID, svc DataService, notifier Notifier, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		userID:   userID,
		svc:      svc,
		notifier: notifier,
		log:      log.With(zap.Stringer("user_id", userID)),
		cart:     models.Cart{ID: userID, User: models.CartOwner{ID: userID}},
	}
}

// Load relit le panier faisant autorité
func (a *Aggregator) Load(ctx context.Context, sess session.Context) (models.Cart, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.refreshLocked(ctx, sess); err != nil {
		return a.cart.Clone(), err
	}
	return a.cart.Clone(), nil
}

// Snapshot retourne le dernier panier connu sans appel réseau
func (a *Aggregator) Snapshot() (models.Cart, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.Clone(), a.stale
}

func (a *Aggregator) Total() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Total(a.cart)
}

// AddItem ajoute une ligne, ou additionne la quantité d'une ligne existante
// portant le même produit et les mêmes personnalisations.
func (a *Aggregator) AddItem(ctx context.Context, sess session.Context, productID models.ID, quantity int, selections map[string]string) MutationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if quantity < 1 {
		return a.resultLocked(apperr.NewValidation("quantité minimale : 1"))
	}
	product, err := a.svc.GetProduct(ctx, sess, productID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return a.resultLocked(apperr.NewValidation(fmt.Sprintf("produit %d inconnu", productID)))
		}
		return a.resultLocked(err)
	}
	selections = normalize(selections)
	if err := validateSelections(product, selections); err != nil {
		return a.resultLocked(err)
	}

	if !a.loaded {
		if err := a.refreshLocked(ctx, sess); err != nil {
			return a.resultLocked(err)
		}
	}

	var mutErr error
	if existing, ok := a.matchLocked(productID, selections); ok {
		mutErr = a.svc.UpdateCartItem(ctx, sess, a.userID, existing.ID, models.CartItemInput{
			ProductID:         productID,
			Quantity:          existing.Quantity + quantity,
			CustomizationData: selections,
		})
	} else {
		mutErr = a.svc.AddCartItem(ctx, sess, a.userID, models.CartItemInput{
			ProductID:         productID,
			Quantity:          quantity,
			CustomizationData: selections,
		})
	}
	return a.afterMutationLocked(ctx, sess, "add_item", mutErr)
}

// SetQuantity ramène toute valeur inférieure à 1 à 1 ; pas de maximum
func (a *Aggregator) SetQuantity(ctx context.Context, sess session.Context, itemID models.ID, n int) MutationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	n = max(n, 1)
	item, ok := a.cart.Item(itemID)
	if !ok {
		if err := a.refreshLocked(ctx, sess); err != nil {
			return a.resultLocked(err)
		}
		if item, ok = a.cart.Item(itemID); !ok {
			return a.resultLocked(&apperr.NotFoundError{Op: fmt.Sprintf("ligne %d du panier", itemID)})
		}
	}

	err := a.svc.UpdateCartItem(ctx, sess, a.userID, itemID, models.CartItemInput{
		ProductID:         item.ProductID,
		Quantity:          n,
		CustomizationData: item.CustomizationData,
	})
	return a.afterMutationLocked(ctx, sess, "set_quantity", err)
}

// RemoveItem est idempotent : une ligne déjà absente (404) compte comme un succès
func (a *Aggregator) RemoveItem(ctx context.Context, sess session.Context, itemID models.ID) MutationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.svc.RemoveCartItem(ctx, sess, a.userID, itemID)
	if apperr.IsNotFound(err) {
		err = nil
	}
	return a.afterMutationLocked(ctx, sess, "remove_item", err)
}

// Clear vide le panier (après un paiement réussi)
func (a *Aggregator) Clear(ctx context.Context, sess session.Context) MutationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.svc.ClearCart(ctx, sess, a.userID)
	return a.afterMutationLocked(ctx, sess, "clear", err)
}

// afterMutationLocked relit le panier que la mutation ait réussi ou non :
// l'état local n'est jamais présenté comme persisté.
func (a *Aggregator) afterMutationLocked(ctx context.Context, sess session.Context, op string, mutErr error) MutationResult {
	if mutErr != nil {
		a.log.Warn("⚠️ mutation du panier refusée", zap.String("op", op), zap.Error(mutErr))
	}
	if err := a.refreshLocked(ctx, sess); err != nil {
		a.log.Warn("⚠️ relecture du panier impossible, panier marqué périmé", zap.String("op", op), zap.Error(err))
		if mutErr == nil {
			// la mutation est peut-être persistée mais on ne peut pas le montrer
			return a.resultLocked(nil)
		}
		return a.resultLocked(mutErr)
	}

	if a.notifier != nil {
		if err := a.notifier.CartChanged(ctx, a.userID, a.cart.Clone()); err != nil {
			a.log.Warn("⚠️ notification panier non publiée", zap.Error(err))
		}
	}
	return a.resultLocked(mutErr)
}

func (a *Aggregator) refreshLocked(ctx context.Context, sess session.Context) error {
	fresh, err := a.svc.GetCart(ctx, sess, a.userID)
	if err != nil {
		a.stale = true
		return err
	}
	a.cart = fresh
	a.loaded = true
	a.stale = false
	return nil
}

func (a *Aggregator) resultLocked(err error) MutationResult {
	return MutationResult{Cart: a.cart.Clone(), Stale: a.stale, Err: err}
}

func (a *Aggregator) matchLocked(productID models.ID, selections map[string]string) (models.CartItem, bool) {
	for _, it := range a.cart.Items {
		if it.ProductID == productID && it.SameSelections(selections) {
			return it, true
		}
	}
	return models.CartItem{}, false
}

// normalize retire les sélections vides ; une carte vide devient nil
func normalize(selections map[string]string) map[string]string {
	out := maps.Clone(selections)
	maps.DeleteFunc(out, func(_, v string) bool { return v == "" })
	if len(out) == 0 {
		return nil
	}
	return out
}

func validateSelections(p models.Product, selections map[string]string) error {
	var problems []string
	if !p.IsActive {
		problems = append(problems, fmt.Sprintf("produit %s indisponible", p.Name))
	}
	for _, name := range p.MissingRequiredOptions(selections) {
		problems = append(problems, p.Name+": "+name+" obligatoire")
	}
	for name, value := range selections {
		opt, ok := p.Option(name)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: option %q inconnue", p.Name, name))
			continue
		}
		if err := opt.Validate(value); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return apperr.NewValidation(problems...)
	}
	return nil
}

// ErrNoUser : aucun panier sans utilisateur authentifié
var ErrNoUser = errors.New("utilisateur requis")

// Registry garde un agrégateur par utilisateur. Un agrégateur inutilisé depuis
// maxAge est retiré par Sweep ; le panier faisant autorité reste au service de données.
type Registry struct {
	mu       sync.Mutex
	svc      DataService
	notifier Notifier
	log      *zap.Logger
	byUser   map[models.ID]*Aggregator
	lastUsed map[models.ID]time.Time
	now      func() time.Time
}

func NewRegistry(svc DataService, notifier Notifier, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		svc:      svc,
		notifier: notifier,
		log:      log,
		byUser:   map[models.ID]*Aggregator{},
		lastUsed: map[models.ID]time.Time{},
		now:      time.Now,
	}
}

func (r *Registry) For(userID models.ID) (*Aggregator, error) {
	if userID <= 0 {
		return nil, ErrNoUser
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	agg, ok := r.byUser[userID]
	if !ok {
		agg = NewAggregator(userID, r.svc, r.notifier, r.log)
		r.byUser[userID] = agg
	}
	r.lastUsed[userID] = r.now()
	return agg, nil
}

// Forget retire l'agrégateur d'un utilisateur (déconnexion)
func (r *Registry) Forget(userID models.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	delete(r.lastUsed, userID)
}

// Sweep retire les agrégateurs inactifs ; une mutation en cours garde le sien
func (r *Registry) Sweep(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, agg := range r.byUser {
		if r.now().Sub(r.lastUsed[id]) <= maxAge || !agg.mu.TryLock() {
			continue
		}
		agg.mu.Unlock()
		delete(r.byUser, id)
		delete(r.lastUsed, id)
		removed++
	}
	return removed
}

// Len : nombre d'agrégateurs en mémoire
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

func (r *Registry) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(maxAge); n > 0 {
				r.log.Info("🧹 paniers inactifs retirés", zap.Int("count", n))
			}
		}
	}
}
