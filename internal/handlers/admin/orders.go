package admin

import (
	"errors"
	"net/http"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/handlers"
	"usha_storefront/internal/models"
	"usha_storefront/internal/orders"
	"usha_storefront/internal/utils"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	*handlers.Base
	Orders  *orders.Service
	Viewers *orders.Viewers
	Auditor *utils.Auditor
}

// GetAllOrders recharge toutes les commandes puis applique recherche, filtre et tri.
// Une réponse dépassée par une actualisation plus récente du même admin est jetée.
func (h *OrderHandler) GetAllOrders(c *gin.Context) {
	q, err := orders.ParseQuery(c.Query("search"), c.Query("status"), c.Query("sort"), c.Query("order"))
	if err != nil {
		h.Fail(c, apperr.NewValidation(err.Error()))
		return
	}
	ctx := c.Request.Context()
	list, err := h.Viewers.For(h.Session(c)).Refresh(ctx)
	if errors.Is(err, orders.ErrSuperseded) {
		c.JSON(http.StatusConflict, gin.H{"error": "Actualisation remplacée par une plus récente", "superseded": true})
		return
	}
	if err != nil {
		h.Fail(c, err)
		return
	}
	list = h.Orders.Narrow(ctx, list, q)

	res := gin.H{
		"orders":  orders.ToDisplay(list),
		"count":   len(list),
		"filters": q,
	}
	if c.Query("group") == "status" {
		res["groups"] = orders.GroupByStatus(list)
	}
	c.JSON(http.StatusOK, res)
}

func (h *OrderHandler) GetOrderStats(c *gin.Context) {
	st, err := h.Orders.Stats(c.Request.Context(), h.Session(c))
	if err != nil {
		h.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":             st.Total,
		"by_status":         st.ByStatus,
		"revenue":           st.Revenue,
		"formatted_revenue": orders.FormatCurrency(st.Revenue),
	})
}

// GetOrdersByStatus : liste filtrée côté service de données, sans passer par l'agrégateur
func (h *OrderHandler) GetOrdersByStatus(c *gin.Context) {
	status := models.OrderStatus(c.Param("status"))
	list, err := h.Orders.ListByStatus(c.Request.Context(), h.Session(c), status)
	if err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Statut invalide", "valid_statuses": models.OrderStatuses})
			return
		}
		h.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"orders": orders.ToDisplay(list),
		"count":  len(list),
	})
}

// UpdateOrderStatus permet à un admin de mettre à jour le statut d'une commande
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := h.IDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	o, err := h.Orders.TransitionStatus(c.Request.Context(), h.Session(c), id, req.Status)
	if err != nil {
		h.Auditor.LogFailedAction(c, utils.ACTION_ORDER_STATUS_UPDATE, utils.RESOURCE_ORDER, id.String(), err.Error())
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Statut invalide", "valid_statuses": models.OrderStatuses})
			return
		}
		h.Fail(c, err)
		return
	}
	h.Auditor.LogAction(c, utils.ACTION_ORDER_STATUS_UPDATE, utils.RESOURCE_ORDER, id.String(), nil, gin.H{"status": o.Status})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   orders.ToDisplay([]models.Order{o})[0],
	})
}
