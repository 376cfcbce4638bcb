package user

import (
	"net/http"

	"usha_storefront/internal/cart"
	"usha_storefront/internal/handlers"
	"usha_storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	*handlers.Base
	Carts *cart.Registry
	Sync  CartSubscriber
}

// PricedItem est une ligne du panier avec ses prix calculés
type PricedItem struct {
	models.CartItem
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type CartView struct {
	ID               models.ID       `json:"id"`
	Items            []PricedItem    `json:"items"`
	Count            int             `json:"count"`
	Total            decimal.Decimal `json:"total"`
	MissingSelection []string        `json:"missingSelections"`
	Stale            bool            `json:"stale"`
}

// NewCartView calcule les prix affichés ; ils suivent exactement la règle du checkout
func NewCartView(c models.Cart, stale bool) CartView {
	v := CartView{
		ID:               c.ID,
		Items:            make([]PricedItem, 0, len(c.Items)),
		Total:            cart.Total(c),
		MissingSelection: cart.MissingSelections(c),
		Stale:            stale,
	}
	if v.MissingSelection == nil {
		v.MissingSelection = []string{}
	}
	for _, it := range c.Items {
		p := PricedItem{CartItem: it, LineTotal: cart.LineTotal(it)}
		if it.Product != nil {
			p.UnitPrice = cart.UnitPrice(*it.Product, it.CustomizationData)
		}
		v.Items = append(v.Items, p)
		v.Count += it.Quantity
	}
	return v
}

func (h *CartHandler) aggregator(c *gin.Context) (*cart.Aggregator, bool) {
	agg, err := h.Carts.For(h.Session(c).UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return nil, false
	}
	return agg, true
}

func (h *CartHandler) reply(c *gin.Context, res cart.MutationResult) {
	if res.Err != nil {
		h.Fail(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, NewCartView(res.Cart, res.Stale))
}

// ✅ Récupère le panier faisant autorité
func (h *CartHandler) GetCart(c *gin.Context) {
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}
	current, err := agg.Load(c.Request.Context(), h.Session(c))
	if err != nil {
		h.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCartView(current, false))
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	var input struct {
		ProductID      models.ID         `json:"productId" binding:"required"`
		Quantity       int               `json:"quantity" binding:"required,min=1"`
		Customizations map[string]string `json:"customizations"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err)
		return
	}
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}
	h.reply(c, agg.AddItem(c.Request.Context(), h.Session(c), input.ProductID, input.Quantity, input.Customizations))
}

// UpdateQuantity : une quantité inférieure à 1 est ramenée à 1
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	itemID, ok := h.IDParam(c, "itemId")
	if !ok {
		return
	}
	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err)
		return
	}
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}
	h.reply(c, agg.SetQuantity(c.Request.Context(), h.Session(c), itemID, input.Quantity))
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	itemID, ok := h.IDParam(c, "itemId")
	if !ok {
		return
	}
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}
	h.reply(c, agg.RemoveItem(c.Request.Context(), h.Session(c), itemID))
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}
	h.reply(c, agg.Clear(c.Request.Context(), h.Session(c)))
}
