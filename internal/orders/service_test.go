package orders_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"usha_storefront/internal/api"
	"usha_storefront/internal/api/apitest"
	"usha_storefront/internal/apperr"
	"usha_storefront/internal/models"
	"usha_storefront/internal/orders"
	"usha_storefront/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	admin = session.Context{Token: "tok", UserID: 1, Role: models.RoleAdmin}
	buyer = session.Context{Token: "tok", UserID: 7, Role: models.RoleBuyer}
)

type sentNotifications struct {
	mu     sync.Mutex
	orders []models.Order
}

func (s *sentNotifications) OrderStatusChanged(_ context.Context, o models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

type fakeIndex struct {
	ids     []models.ID
	err     error
	indexed int
}

func (f *fakeIndex) IndexOrders(_ context.Context, list []models.Order) error {
	f.indexed += len(list)
	return nil
}

func (f *fakeIndex) SearchOrderIDs(context.Context, string) ([]models.ID, error) {
	return f.ids, f.err
}

func seed(b *apitest.Backend) models.Order {
	o := models.Order{
		ID: 12, OrderDate: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
		TotalAmount: decimal.NewFromInt(2400), Status: models.OrderStatusPending,
		ShippingAddress: "12 Galle Road, Colombo",
		User:            models.OrderUser{ID: 7, FirstName: "Ama", Email: "ama@example.com"},
		OrderItems: []models.OrderItem{{ID: 1, Quantity: 2, Product: apitest.Mug(),
			Customizations: []models.OrderCustomization{{ID: 11, SelectedValue: "Ama", PriceImpact: decimal.NewFromInt(200)}}}},
	}
	b.AddOrder(o)
	b.AddOrder(models.Order{ID: 13, Status: models.OrderStatusDelivered, TotalAmount: decimal.NewFromInt(450), User: models.OrderUser{ID: 8}})
	return o
}

func newService(t *testing.T, index orders.Index) (*apitest.Backend, *orders.Service, *sentNotifications) {
	b := apitest.New(t)
	client := api.New(api.Options{BaseURL: b.URL(), Logger: zaptest.NewLogger(t)})
	sent := &sentNotifications{}
	return b, orders.NewService(client, sent, index, zaptest.NewLogger(t)), sent
}

func TestTransitionStatus_OnlyStatusChanges(t *testing.T) {
	b, svc, sent := newService(t, nil)
	before := seed(b)

	after, err := svc.TransitionStatus(context.Background(), admin, 12, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, after.Status)

	assert.Equal(t, 1, b.Calls("PATCH /orders/:id/status"))
	assert.Equal(t, 1, b.Calls("GET /orders/:id"))

	assert.True(t, before.TotalAmount.Equal(after.TotalAmount))
	assert.Equal(t, before.ShippingAddress, after.ShippingAddress)
	assert.Equal(t, before.User, after.User)
	require.Len(t, after.OrderItems, 1)
	assert.Equal(t, before.OrderItems[0].Customizations[0].SelectedValue, after.OrderItems[0].Customizations[0].SelectedValue)
	require.Len(t, sent.orders, 1)
}

func TestTransitionStatus_Idempotent(t *testing.T) {
	b, svc, _ := newService(t, nil)
	seed(b)

	for range 2 {
		o, err := svc.TransitionStatus(context.Background(), admin, 12, models.OrderStatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusConfirmed, o.Status)
	}
	stored, _ := b.Order(12)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
}

func TestTransitionStatus_RejectsUnknownStatus(t *testing.T) {
	b, svc, _ := newService(t, nil)
	seed(b)

	_, err := svc.TransitionStatus(context.Background(), admin, 12, "SHIPPED")
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, b.TotalCalls())
}

func TestTransitionStatus_RemoteFailure(t *testing.T) {
	b, svc, sent := newService(t, nil)
	seed(b)
	b.Fail("PATCH /orders/:id/status", http.StatusForbidden)

	_, err := svc.TransitionStatus(context.Background(), admin, 12, models.OrderStatusDelivered)
	var remote *apperr.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Empty(t, sent.orders)
}

func TestGet_BuyerSeesOnlyOwnOrders(t *testing.T) {
	b, svc, _ := newService(t, nil)
	seed(b)

	o, err := svc.Get(context.Background(), buyer, 12)
	require.NoError(t, err)
	assert.Equal(t, models.ID(12), o.ID)

	_, err = svc.Get(context.Background(), buyer, 13)
	assert.True(t, apperr.IsNotFound(err))

	_, err = svc.Get(context.Background(), admin, 13)
	assert.NoError(t, err)
}

func TestListForUserAndByStatus(t *testing.T) {
	b, svc, _ := newService(t, nil)
	seed(b)

	mine, err := svc.ListForUser(context.Background(), buyer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.ID(12), mine[0].ID)

	delivered, err := svc.ListByStatus(context.Background(), admin, models.OrderStatusDelivered)
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, models.ID(13), delivered[0].ID)

	_, err = svc.ListByStatus(context.Background(), admin, "LOST")
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSearch_UsesIndexThenFallsBack(t *testing.T) {
	idx := &fakeIndex{ids: []models.ID{13}}
	b, svc, _ := newService(t, idx)
	seed(b)
	q := orders.Query{Search: "anything", Status: orders.StatusAll, SortBy: orders.SortByDate, Desc: true}

	got, err := svc.Search(context.Background(), admin, q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ID(13), got[0].ID)
	assert.Equal(t, 2, idx.indexed)

	idx.err = errors.New("cluster red")
	q.Search = "ama"
	got, err = svc.Search(context.Background(), admin, q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ID(12), got[0].ID)
}

func TestStats(t *testing.T) {
	b, svc, _ := newService(t, nil)
	seed(b)

	st, err := svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, "2850", st.Revenue.String())
}
