// Package apperr regroupe les types d'erreurs partagés par le client du service
// de données, le panier, le checkout et le flux de paiement.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError : une précondition locale n'est pas respectée, aucun appel réseau n'a eu lieu
type ValidationError struct {
	Problems []string
}

func NewValidation(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "validation échouée"
	}
	return "validation échouée: " + strings.Join(e.Problems, "; ")
}

// NetworkError : pas de réponse (timeout, connexion refusée, circuit ouvert)
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: service injoignable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthorizationError : le service de données a répondu 401
type AuthorizationError struct {
	Op string
}

func (e *AuthorizationError) Error() string {
	return e.Op + ": session expirée ou non autorisée"
}

type NotFoundError struct {
	Op string
}

func (e *NotFoundError) Error() string {
	return e.Op + ": ressource introuvable"
}

// RemoteError : tout autre statut non-2xx
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: statut %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: statut %d: %s", e.Op, e.Status, e.Message)
}

// PaymentDeclinedError : le prestataire de paiement a refusé ou échoué la confirmation
type PaymentDeclinedError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentDeclinedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("paiement refusé (%s): %s", e.Code, e.Message)
	}
	return "paiement refusé: " + e.Message
}

func (e *PaymentDeclinedError) Unwrap() error { return e.Err }

// ReconciliationGap : paiement encaissé mais la finalisation côté service a échoué
type ReconciliationGap struct {
	PaymentIntentID string
	Err             error
}

func (e *ReconciliationGap) Error() string {
	return fmt.Sprintf("paiement %s encaissé mais commande non finalisée: %v", e.PaymentIntentID, e.Err)
}

func (e *ReconciliationGap) Unwrap() error { return e.Err }

// CheckoutInitiationError : la création de l'intention de paiement a échoué
type CheckoutInitiationError struct {
	Err error
}

func (e *CheckoutInitiationError) Error() string {
	return "initialisation du paiement impossible: " + e.Err.Error()
}

func (e *CheckoutInitiationError) Unwrap() error { return e.Err }

// ErrPaymentUnavailable : aucun prestataire de paiement configuré
var ErrPaymentUnavailable = errors.New("paiement indisponible")

// IsNotFound vaut true pour un 404 du service de données
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// HTTPStatus associe une erreur à un statut HTTP pour les handlers
func HTTPStatus(err error) int {
	var (
		ve  *ValidationError
		ne  *NetworkError
		ae  *AuthorizationError
		nf  *NotFoundError
		pd  *PaymentDeclinedError
		rg  *ReconciliationGap
		ci  *CheckoutInitiationError
		rem *RemoteError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &pd):
		return http.StatusPaymentRequired
	case errors.As(err, &rg):
		return http.StatusAccepted
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.Is(err, ErrPaymentUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &ne):
		return http.StatusBadGateway
	case errors.As(err, &rem) && rem.Status >= 400 && rem.Status < 500:
		// un refus 4xx du service reste un refus, même enveloppé par le checkout
		return rem.Status
	case errors.As(err, &ci), errors.As(err, &rem):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
