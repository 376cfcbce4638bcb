package orders

import (
	"context"
	"testing"
	"time"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewer_DiscardsSupersededResponse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	calls := 0
	v := NewViewer(func(ctx context.Context) ([]models.Order, error) {
		calls++
		if calls == 1 {
			started <- struct{}{}
			<-release
			return []models.Order{{ID: 1}}, nil
		}
		return []models.Order{{ID: 2}}, nil
	})

	slow := make(chan error, 1)
	go func() {
		_, err := v.Refresh(context.Background())
		slow <- err
	}()
	<-started

	fresh, err := v.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ID(2), fresh[0].ID)

	close(release)
	assert.ErrorIs(t, <-slow, ErrSuperseded)
	assert.Equal(t, models.ID(2), v.Orders()[0].ID)
}

func TestViewer_DiscardsCancelledCaller(t *testing.T) {
	v := NewViewer(func(ctx context.Context) ([]models.Order, error) {
		<-ctx.Done()
		return []models.Order{{ID: 1}}, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := v.Refresh(ctx)
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Empty(t, v.Orders())
}

func TestViewers_SweepAndForget(t *testing.T) {
	vs := NewViewers(nil)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	vs.now = func() time.Time { return now }

	admin := vs.For(session.Context{Token: "a", UserID: 1, Role: models.RoleAdmin})
	vs.For(session.Context{Token: "b", UserID: 2, Role: models.RoleAdmin})

	now = now.Add(20 * time.Minute)
	assert.Same(t, admin, vs.For(session.Context{Token: "a2", UserID: 1, Role: models.RoleAdmin}))

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, vs.Sweep(30*time.Minute))
	assert.Equal(t, 1, vs.Len())

	vs.Forget(1)
	assert.Zero(t, vs.Len())
	assert.NotSame(t, admin, vs.For(session.Context{Token: "a3", UserID: 1, Role: models.RoleAdmin}))
}
