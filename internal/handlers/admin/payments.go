package admin

import (
	"context"
	"net/http"

	"usha_storefront/internal/handlers"
	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
	"usha_storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentService interface {
	ListPayments(ctx context.Context, sess session.Context) ([]models.Payment, error)
	GetPayment(ctx context.Context, sess session.Context, id models.ID) (models.Payment, error)
	RefundPayment(ctx context.Context, sess session.Context, refund models.PaymentRefund) error
}

type PaymentHandler struct {
	*handlers.Base
	Payments PaymentService
	Auditor  *utils.Auditor
}

func (h *PaymentHandler) GetAllPayments(c *gin.Context) {
	payments, err := h.Payments.ListPayments(c.Request.Context(), h.Session(c))
	if err != nil {
		h.Fail(c, err)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := h.IDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.Payments.GetPayment(c.Request.Context(), h.Session(c), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}

// ProcessRefund transmet le remboursement au service de données, qui s'adresse au prestataire
func (h *PaymentHandler) ProcessRefund(c *gin.Context) {
	var req struct {
		PaymentID models.ID       `json:"payment_id" binding:"required"`
		Amount    decimal.Decimal `json:"amount"`
		Reason    string          `json:"reason" binding:"required,min=3,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le montant doit être positif"})
		return
	}

	refund := models.PaymentRefund{PaymentID: req.PaymentID, Amount: req.Amount, Reason: req.Reason}
	if err := h.Payments.RefundPayment(c.Request.Context(), h.Session(c), refund); err != nil {
		h.Auditor.LogFailedAction(c, utils.ACTION_PAYMENT_REFUND, utils.RESOURCE_PAYMENT, req.PaymentID.String(), err.Error())
		h.Fail(c, err)
		return
	}
	h.Auditor.LogAction(c, utils.ACTION_PAYMENT_REFUND, utils.RESOURCE_PAYMENT, req.PaymentID.String(), nil, refund)
	h.Log.Info("💸 Remboursement effectué", zap.Stringer("payment_id", req.PaymentID), zap.String("amount", req.Amount.String()))

	c.JSON(http.StatusOK, gin.H{"success": true, "refund": refund})
}
