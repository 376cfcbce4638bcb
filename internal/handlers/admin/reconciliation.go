package admin

import (
	"net/http"
	"strconv"

	"usha_storefront/internal/handlers"
	"usha_storefront/internal/models"
	"usha_storefront/internal/reconciliation"
	"usha_storefront/internal/utils"

	"github.com/gin-gonic/gin"
)

type ReconciliationHandler struct {
	*handlers.Base
	Gaps    *reconciliation.Service
	Auditor *utils.Auditor
}

// GetGaps liste les écarts non résolus, ou tous avec ?all=true
func (h *ReconciliationHandler) GetGaps(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))
	gaps, err := h.Gaps.List(c.Request.Context(), !all)
	if err != nil {
		h.Fail(c, err)
		return
	}
	if gaps == nil {
		gaps = []models.ReconciliationGap{}
	}
	c.JSON(http.StatusOK, gin.H{"gaps": gaps, "count": len(gaps)})
}

// RetryGap relance la finalisation de la commande pour une intention encaissée
func (h *ReconciliationHandler) RetryGap(c *gin.Context) {
	intentID := c.Param("intentId")
	gap, err := h.Gaps.Retry(c.Request.Context(), h.Session(c), intentID)
	if err != nil {
		h.Auditor.LogFailedAction(c, utils.ACTION_RECONCILIATION_RETRY, utils.RESOURCE_RECONCILIATION, intentID, err.Error())
		if gap.PaymentIntentID != "" {
			// l'écart reste ouvert : on renvoie son état à jour avec l'erreur
			c.JSON(http.StatusBadGateway, gin.H{"error": "Finalisation toujours impossible", "gap": gap})
			return
		}
		h.Fail(c, err)
		return
	}
	h.Auditor.LogAction(c, utils.ACTION_RECONCILIATION_RETRY, utils.RESOURCE_RECONCILIATION, intentID, nil, gap)
	c.JSON(http.StatusOK, gin.H{"success": true, "gap": gap})
}
