package user

import (
	"net/http"

	"usha_storefront/internal/apperr"
	"usha_storefront/internal/handlers"
	"usha_storefront/internal/models"
	"usha_storefront/internal/orders"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	*handlers.Base
	Orders *orders.Service
}

// ✅ Récupère les commandes de l'utilisateur connecté, filtrées et triées
// selon ?search=&status=&sort=date|total|status&order=asc|desc&group=status
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	q, err := orders.ParseQuery(c.Query("search"), c.Query("status"), c.Query("sort"), c.Query("order"))
	if err != nil {
		h.Fail(c, apperr.NewValidation(err.Error()))
		return
	}
	list, err := h.Orders.ListForUser(c.Request.Context(), h.Session(c))
	if err != nil {
		h.Fail(c, err)
		return
	}
	list = orders.Apply(list, q)

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

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := h.IDParam(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), h.Session(c), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders.ToDisplay([]models.Order{o})[0])
}
