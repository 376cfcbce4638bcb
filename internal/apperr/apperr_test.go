package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidation("panier vide"), http.StatusBadRequest},
		{"network", &NetworkError{Op: "GET /cart", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"auth", &AuthorizationError{Op: "GET /orders"}, http.StatusUnauthorized},
		{"not found wrapped", fmt.Errorf("lecture: %w", &NotFoundError{Op: "GET /orders/9"}), http.StatusNotFound},
		{"declined", &PaymentDeclinedError{Code: "card_declined", Message: "refus"}, http.StatusPaymentRequired},
		{"gap", &ReconciliationGap{PaymentIntentID: "pi_1", Err: errors.New("500")}, http.StatusAccepted},
		{"remote 409", &RemoteError{Op: "POST /cart", Status: 409}, http.StatusConflict},
		{"remote 500", &RemoteError{Op: "POST /cart", Status: 500}, http.StatusBadGateway},
		{"checkout wraps remote 400", &CheckoutInitiationError{Err: &RemoteError{Op: "POST /payments/create-intent", Status: 400, Message: "amount must be positive"}}, http.StatusBadRequest},
		{"checkout wraps remote 503", &CheckoutInitiationError{Err: &RemoteError{Op: "POST /payments/create-intent", Status: 503}}, http.StatusBadGateway},
		{"checkout wraps network", &CheckoutInitiationError{Err: &NetworkError{Op: "POST /payments/create-intent", Err: errors.New("refused")}}, http.StatusBadGateway},
		{"checkout wraps auth", &CheckoutInitiationError{Err: &AuthorizationError{Op: "POST /payments/create-intent"}}, http.StatusUnauthorized},
		{"unavailable", ErrPaymentUnavailable, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestCheckoutInitiationErrorUnwraps(t *testing.T) {
	cause := &NetworkError{Op: "POST /payments/create-intent", Err: errors.New("refused")}
	err := &CheckoutInitiationError{Err: cause}

	var ne *NetworkError
	assert.True(t, errors.As(err, &ne))
	assert.Contains(t, err.Error(), "refused")
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidation("Mug: Couleur", "Tshirt: Taille")
	assert.Equal(t, "validation échouée: Mug: Couleur; Tshirt: Taille", err.Error())
}
