package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"usha_storefront/internal/handlers"
	"usha_storefront/internal/models"
	"usha_storefront/internal/orders"
	"usha_storefront/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AnalyticsService : agrégats calculés par le service de données pour le tableau de bord
type AnalyticsService interface {
	MonthlyRevenue(ctx context.Context, sess session.Context, year int) ([]models.MonthlyRevenue, error)
	MostOrderedProducts(ctx context.Context, sess session.Context) ([]models.MostOrderedProduct, error)
	CategoryStats(ctx context.Context, sess session.Context) ([]models.CategoryStats, error)
}

type AnalyticsHandler struct {
	*handlers.Base
	Analytics AnalyticsService
}

// GetMonthlyRevenue : ?year=, par défaut l'année en cours
func (h *AnalyticsHandler) GetMonthlyRevenue(c *gin.Context) {
	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 2000 || y > 9999 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Année invalide"})
			return
		}
		year = y
	}

	months, err := h.Analytics.MonthlyRevenue(c.Request.Context(), h.Session(c), year)
	if err != nil {
		h.Fail(c, err)
		return
	}
	if months == nil {
		months = []models.MonthlyRevenue{}
	}
	total := decimal.Zero
	count := 0
	for _, m := range months {
		total = total.Add(m.Revenue)
		count += m.TotalOrders
	}
	c.JSON(http.StatusOK, gin.H{
		"year":                    year,
		"months":                  months,
		"total_revenue":           total,
		"formatted_total_revenue": orders.FormatCurrency(total),
		"total_orders":            count,
	})
}

func (h *AnalyticsHandler) GetMostOrderedProducts(c *gin.Context) {
	products, err := h.Analytics.MostOrderedProducts(c.Request.Context(), h.Session(c))
	if err != nil {
		h.Fail(c, err)
		return
	}
	if products == nil {
		products = []models.MostOrderedProduct{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *AnalyticsHandler) GetCategoryStats(c *gin.Context) {
	categories, err := h.Analytics.CategoryStats(c.Request.Context(), h.Session(c))
	if err != nil {
		h.Fail(c, err)
		return
	}
	if categories == nil {
		categories = []models.CategoryStats{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories, "count": len(categories)})
}
