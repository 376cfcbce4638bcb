package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

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

func newInitiator(t *testing.T) (*apitest.Backend, *Initiator) {
	b := apitest.New(t)
	b.AddProduct(apitest.Mug())
	client := api.New(api.Options{BaseURL: b.URL(), Logger: zaptest.NewLogger(t)})
	return b, NewInitiator(client, zaptest.NewLogger(t))
}

func mugCart(selections map[string]string, qty int) models.Cart {
	p := apitest.Mug()
	return models.Cart{ID: 7, User: models.CartOwner{ID: 7}, Items: []models.CartItem{
		{ID: 21, ProductID: p.ID, Product: &p, Quantity: qty, CustomizationData: selections},
	}}
}

func TestInitiateCheckout_EmptyCartMakesNoCall(t *testing.T) {
	b, in := newInitiator(t)

	_, err := in.InitiateCheckout(context.Background(), buyer, models.Cart{})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, b.TotalCalls())
}

func TestInitiateCheckout_MissingRequiredOption(t *testing.T) {
	b, in := newInitiator(t)

	_, err := in.InitiateCheckout(context.Background(), buyer, mugCart(map[string]string{"Color": "Red"}, 1))
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"21/Mug personnalisé: Engraving"}, ve.Problems)
	assert.Zero(t, b.TotalCalls())
}

func TestInitiateCheckout_BuildsIntentRequest(t *testing.T) {
	b, in := newInitiator(t)

	res, err := in.InitiateCheckout(context.Background(), buyer, mugCart(map[string]string{"Engraving": "Ama", "Color": "Blue"}, 2))
	require.NoError(t, err)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, "2500", res.DisplayTotal.String())
	assert.Equal(t, int64(250000), res.AmountMinor)

	req, ok := b.Intent(res.PaymentIntentID)
	require.True(t, ok)
	assert.Equal(t, int64(250000), req.Amount)
	assert.Equal(t, models.ID(7), req.UserID)
	require.Len(t, req.OrderItems, 1)
	assert.Equal(t, []models.Customization{
		{CustomizationOptionID: 11, SelectedValue: "Ama"},
		{CustomizationOptionID: 12, SelectedValue: "Blue"},
	}, req.OrderItems[0].Customizations)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(b.Bodies("POST /payments/create-intent")[0]), &raw))
	assert.ElementsMatch(t, []string{"amount", "user_id", "order_items"}, keys(raw))
}

func TestInitiateCheckout_FailureWrapsCause(t *testing.T) {
	b, in := newInitiator(t)
	b.Fail("POST /payments/create-intent", http.StatusBadGateway)

	c := mugCart(map[string]string{"Engraving": "Ama"}, 1)
	_, err := in.InitiateCheckout(context.Background(), buyer, c)

	var ci *apperr.CheckoutInitiationError
	require.ErrorAs(t, err, &ci)
	var remote *apperr.RemoteError
	assert.True(t, errors.As(err, &remote))
	assert.Equal(t, 1, b.Calls("POST /payments/create-intent"), "pas de relance automatique")
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestInitiateCheckout_SecondCallGetsFreshIntent(t *testing.T) {
	_, in := newInitiator(t)
	c := mugCart(map[string]string{"Engraving": "Ama"}, 1)

	first, err := in.InitiateCheckout(context.Background(), buyer, c)
	require.NoError(t, err)
	second, err := in.InitiateCheckout(context.Background(), buyer, c)
	require.NoError(t, err)
	assert.NotEqual(t, first.PaymentIntentID, second.PaymentIntentID)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
