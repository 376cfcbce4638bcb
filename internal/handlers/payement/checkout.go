package payement

import (
	"context"
	"errors"
	"net/http"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/cart"
	"usha_storefront/internal/checkout"
	"usha_storefront/internal/handlers"
	"usha_storefront/internal/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	*handlers.Base
	Carts     *cart.Registry
	Initiator *checkout.Initiator
	Flows     *payment.Registry
}

// Checkout relit le panier faisant autorité, demande l'intention de paiement
// et ouvre le flux de confirmation.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	sess := h.Session(c)
	agg, err := h.Carts.For(sess.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}
	ctx := c.Request.Context()

	current, err := agg.Load(ctx, sess)
	if err != nil {
		h.Fail(c, err)
		return
	}
	res, err := h.Initiator.InitiateCheckout(ctx, sess, current)
	if err != nil {
		h.Fail(c, err)
		return
	}
	flow, err := h.Flows.Open(sess, paymentIntent(res), res.AmountMinor)
	if err != nil {
		h.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"clientSecret":    res.ClientSecret,
		"paymentIntentId": res.PaymentIntentID,
		"displayTotal":    res.DisplayTotal,
		"amountMinor":     res.AmountMinor,
		"state":           flow.State(),
		"paymentEnabled":  h.Flows.Enabled(),
	})
}

// Pay soumet le paiement. Un double clic ne déclenche qu'une confirmation :
// la seconde soumission reçoit 409 pendant que la première est en cours.
func (h *CheckoutHandler) Pay(c *gin.Context) {
	if !h.Flows.Enabled() {
		h.Fail(c, apperr.ErrPaymentUnavailable)
		return
	}
	var input struct {
		PaymentMethodID string `json:"paymentMethodId"`
	}
	// corps facultatif : sans moyen de paiement, le widget a déjà confirmé l'intention
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			h.BadRequest(c, err)
			return
		}
	}

	sess := h.Session(c)
	flow, ok := h.flow(c)
	if !ok {
		return
	}

	outcome, err := flow.Submit(c.Request.Context(), sess, input.PaymentMethodID)
	if err != nil {
		h.submitRejected(c, outcome, err)
		return
	}

	var (
		declined *apperr.PaymentDeclinedError
		gap      *apperr.ReconciliationGap
	)
	switch {
	case errors.As(outcome.Err, &declined):
		h.Fail(c, declined)
		return
	case errors.As(outcome.Err, &gap):
		h.clearCart(c)
		h.Log.Warn("🚨 paiement confirmé, commande en attente de réconciliation",
			zap.String("payment_intent_id", gap.PaymentIntentID))
		c.JSON(http.StatusAccepted, gin.H{
			"state":           outcome.State,
			"message":         "Paiement reçu, votre commande est en cours de finalisation",
			"redirectTo":      outcome.RedirectTo,
			"redirectAfterMs": outcome.RedirectAfter.Milliseconds(),
		})
		return
	case outcome.Err != nil:
		// prestataire injoignable : même intention, nouvel essai possible
		h.Fail(c, outcome.Err)
		return
	}

	h.clearCart(c)
	c.JSON(http.StatusOK, gin.H{
		"state":           outcome.State,
		"message":         "Paiement confirmé",
		"redirectTo":      outcome.RedirectTo,
		"redirectAfterMs": outcome.RedirectAfter.Milliseconds(),
	})
}

func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	res := gin.H{
		"paymentIntentId": flow.Intent().PaymentIntentID,
		"state":           flow.State(),
	}
	if err := flow.LastError(); err != nil {
		res["lastError"] = err.Error()
	}
	c.JSON(http.StatusOK, res)
}

func (h *CheckoutHandler) CancelCheckout(c *gin.Context) {
	err := h.Flows.Close(h.Session(c), c.Param("intentId"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, payment.ErrFlowNotFound), errors.Is(err, payment.ErrNotOwner):
		c.JSON(http.StatusNotFound, gin.H{"error": "Paiement introuvable"})
	case errors.Is(err, payment.ErrCancelWhileConfirming), errors.Is(err, payment.ErrAlreadySucceeded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.Fail(c, err)
	}
}

func (h *CheckoutHandler) flow(c *gin.Context) (*payment.Flow, bool) {
	flow, err := h.Flows.Get(h.Session(c), c.Param("intentId"))
	if err != nil {
		// une intention d'un autre utilisateur est indiscernable d'une intention inconnue
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Paiement introuvable"})
		return nil, false
	}
	return flow, true
}

func (h *CheckoutHandler) submitRejected(c *gin.Context, outcome payment.Outcome, err error) {
	switch {
	case errors.Is(err, payment.ErrSubmissionInProgress), errors.Is(err, payment.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": outcome.State})
	case errors.Is(err, payment.ErrAlreadySucceeded):
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"state":      outcome.State,
			"redirectTo": outcome.RedirectTo,
		})
	default:
		h.Fail(c, err)
	}
}

// clearCart vide le panier une fois le paiement acquis ; un échec est seulement journalisé
func (h *CheckoutHandler) clearCart(c *gin.Context) {
	sess := h.Session(c)
	agg, err := h.Carts.For(sess.UserID)
	if err != nil {
		return
	}
	res := agg.Clear(context.WithoutCancel(c.Request.Context()), sess)
	if res.Err != nil {
		h.Log.Warn("⚠️ panier non vidé après paiement", zap.Stringer("user_id", sess.UserID), zap.Error(res.Err))
	}
}
