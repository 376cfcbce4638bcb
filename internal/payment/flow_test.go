package payment

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
	"usha_storefront/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var buyer = session.Context{Token: "tok", UserID: 7, Role: models.RoleBuyer}

// fakeProvider répond avec les erreurs de results, dans l'ordre ; gate bloque la confirmation
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	results []error
	gate    chan struct{}
	entered chan struct{}
	waitCtx bool
	seenErr error
}

func (p *fakeProvider) Confirm(ctx context.Context, _, _ string) error {
	p.mu.Lock()
	p.calls++
	var err error
	if len(p.results) > 0 {
		err, p.results = p.results[0], p.results[1:]
	}
	p.mu.Unlock()
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.gate != nil {
		<-p.gate
	}
	if p.waitCtx {
		<-ctx.Done()
		err = ctx.Err()
	}
	p.mu.Lock()
	p.seenErr = ctx.Err()
	p.mu.Unlock()
	return err
}

// ctxErr : état du contexte de la dernière confirmation, au moment où elle répond
func (p *fakeProvider) ctxErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seenErr
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type memGaps struct {
	mu   sync.Mutex
	gaps []models.ReconciliationGap
}

func (m *memGaps) Record(_ context.Context, g models.ReconciliationGap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gaps = append(m.gaps, g)
	return nil
}

type fixture struct {
	backend  *apitest.Backend
	client   *api.Client
	provider *fakeProvider
	gaps     *memGaps
	flow     *Flow
	intent   models.PaymentIntent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := apitest.New(t)
	b.AddProduct(apitest.Poster())
	client := api.New(api.Options{BaseURL: b.URL(), Logger: zaptest.NewLogger(t)})

	intent, err := client.CreatePaymentIntent(context.Background(), buyer, models.PaymentIntentRequest{
		Amount: 45050, UserID: buyer.UserID,
		OrderItems: []models.OrderItemInput{{ProductID: 2, Quantity: 1, Customizations: []models.Customization{}}},
	})
	require.NoError(t, err)

	f := &fixture{backend: b, client: client, provider: &fakeProvider{}, gaps: &memGaps{}, intent: intent}
	f.flow = NewFlow(f.provider, client, f.gaps, zaptest.NewLogger(t))
	require.NoError(t, f.flow.Show(buyer.UserID, intent, 45050))
	return f
}

func TestFlow_Success(t *testing.T) {
	f := newFixture(t)

	out, err := f.flow.Submit(context.Background(), buyer, "")
	require.NoError(t, err)
	assert.NoError(t, out.Err)
	assert.Equal(t, Succeeded, out.State)
	assert.Equal(t, "/customer/orders", out.RedirectTo)
	assert.Equal(t, 3*time.Second, out.RedirectAfter)
	assert.Equal(t, Succeeded, f.flow.State())
	assert.Equal(t, 1, f.backend.Calls("POST /payments/complete"))
}

func TestFlow_RapidDoubleSubmitCompletesOnce(t *testing.T) {
	f := newFixture(t)
	f.provider.gate = make(chan struct{})
	f.provider.entered = make(chan struct{}, 1)

	done := make(chan Outcome)
	go func() {
		out, _ := f.flow.Submit(context.Background(), buyer, "pm_card_visa")
		done <- out
	}()
	<-f.provider.entered
	assert.Equal(t, Confirming, f.flow.State())

	_, err := f.flow.Submit(context.Background(), buyer, "pm_card_visa")
	assert.ErrorIs(t, err, ErrSubmissionInProgress)
	assert.ErrorIs(t, f.flow.Cancel(), ErrCancelWhileConfirming)

	close(f.provider.gate)
	out := <-done
	assert.Equal(t, Succeeded, out.State)

	_, err = f.flow.Submit(context.Background(), buyer, "pm_card_visa")
	assert.ErrorIs(t, err, ErrAlreadySucceeded)

	assert.Equal(t, 1, f.provider.Calls())
	assert.Equal(t, 1, f.backend.Calls("POST /payments/complete"))
}

func TestFlow_ConcurrentSubmitsOneConfirmation(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.flow.Submit(context.Background(), buyer, "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.provider.Calls())
	assert.Equal(t, 1, f.backend.Calls("POST /payments/complete"))
}

func TestFlow_DeclineReturnsToAwaitingUserAction(t *testing.T) {
	f := newFixture(t)
	f.provider.results = []error{&apperr.PaymentDeclinedError{Code: "card_declined", Message: "Your card was declined."}}

	out, err := f.flow.Submit(context.Background(), buyer, "pm_card_chargeDeclined")
	require.NoError(t, err)
	assert.Equal(t, Failed, out.State)
	var declined *apperr.PaymentDeclinedError
	require.ErrorAs(t, out.Err, &declined)
	assert.Equal(t, "card_declined", declined.Code)
	assert.Equal(t, AwaitingUserAction, f.flow.State())
	assert.Zero(t, f.backend.Calls("POST /payments/complete"))

	// même clientSecret, nouvel essai
	out, err = f.flow.Submit(context.Background(), buyer, "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, Succeeded, out.State)
	assert.Equal(t, 1, f.backend.Calls("POST /payments/complete"))
}

func TestFlow_ProviderUnreachableIsNetworkError(t *testing.T) {
	f := newFixture(t)
	f.provider.results = []error{errors.New("connexion perdue")}

	out, err := f.flow.Submit(context.Background(), buyer, "")
	require.NoError(t, err)
	assert.Equal(t, Failed, out.State)

	var (
		network  *apperr.NetworkError
		declined *apperr.PaymentDeclinedError
	)
	require.ErrorAs(t, out.Err, &network)
	assert.False(t, errors.As(out.Err, &declined))
	assert.Equal(t, http.StatusBadGateway, apperr.HTTPStatus(out.Err))
	assert.ErrorAs(t, f.flow.LastError(), &network)

	// même clientSecret, nouvel essai
	assert.Equal(t, AwaitingUserAction, f.flow.State())
	assert.Zero(t, f.backend.Calls("POST /payments/complete"))
}

func TestFlow_ConfirmOutlivesCallerContext(t *testing.T) {
	f := newFixture(t)
	f.provider.gate = make(chan struct{})
	f.provider.entered = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome)
	go func() {
		out, _ := f.flow.Submit(ctx, buyer, "pm_card_visa")
		done <- out
	}()
	<-f.provider.entered
	cancel()
	close(f.provider.gate)

	out := <-done
	assert.Equal(t, Succeeded, out.State)
	assert.NoError(t, f.provider.ctxErr())
	assert.Equal(t, 1, f.backend.Calls("POST /payments/complete"))
}

func TestFlow_ConfirmTimeoutIsNetworkError(t *testing.T) {
	f := newFixture(t)
	f.flow.confirmTimeout = 20 * time.Millisecond
	f.provider.waitCtx = true

	out, err := f.flow.Submit(context.Background(), buyer, "pm_card_visa")
	require.NoError(t, err)
	var network *apperr.NetworkError
	require.ErrorAs(t, out.Err, &network)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Equal(t, AwaitingUserAction, f.flow.State())
}

func TestFlow_CompletionFailureRecordsGap(t *testing.T) {
	f := newFixture(t)
	f.backend.Fail("POST /payments/complete", http.StatusInternalServerError)

	out, err := f.flow.Submit(context.Background(), buyer, "")
	require.NoError(t, err)
	assert.Equal(t, Succeeded, out.State)
	assert.Equal(t, "/customer/orders", out.RedirectTo)

	var gap *apperr.ReconciliationGap
	require.ErrorAs(t, out.Err, &gap)
	assert.Equal(t, f.intent.PaymentIntentID, gap.PaymentIntentID)

	require.Len(t, f.gaps.gaps, 1)
	recorded := f.gaps.gaps[0]
	assert.Equal(t, f.intent.PaymentIntentID, recorded.PaymentIntentID)
	assert.Equal(t, buyer.UserID, recorded.UserID)
	assert.Equal(t, int64(45050), recorded.AmountMinor)
	assert.Equal(t, 1, recorded.Attempts)
	assert.NotEmpty(t, recorded.ID)

	_, err = f.flow.Submit(context.Background(), buyer, "")
	assert.ErrorIs(t, err, ErrAlreadySucceeded)
	assert.Equal(t, 1, f.backend.Calls("POST /payments/complete"))
}

func TestFlow_SubmitBeforeShow(t *testing.T) {
	flow := NewFlow(&fakeProvider{}, nil, nil, nil)
	_, err := flow.Submit(context.Background(), buyer, "")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestFlow_NoProvider(t *testing.T) {
	flow := NewFlow(nil, nil, nil, nil)
	require.NoError(t, flow.Show(7, models.PaymentIntent{PaymentIntentID: "pi_1"}, 100))
	_, err := flow.Submit(context.Background(), buyer, "")
	assert.ErrorIs(t, err, apperr.ErrPaymentUnavailable)
	assert.Equal(t, AwaitingUserAction, flow.State())
}

func TestFlow_Cancel(t *testing.T) {
	flow := NewFlow(&fakeProvider{}, nil, nil, nil)
	require.NoError(t, flow.Show(7, models.PaymentIntent{PaymentIntentID: "pi_1"}, 100))
	require.NoError(t, flow.Cancel())
	assert.Equal(t, Idle, flow.State())
	assert.Empty(t, flow.Intent().PaymentIntentID)
}
