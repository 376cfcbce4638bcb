package routes

import (
	"net/http"
	"time"

	"usha_storefront/internal/handlers"
	"usha_storefront/internal/handlers/admin"
	"usha_storefront/internal/handlers/payement"
	"usha_storefront/internal/handlers/user"
	"usha_storefront/internal/middleware"
	"usha_storefront/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers regroupe tout ce que RegisterRoutes branche sur le routeur
type Handlers struct {
	Sessions       *session.Store
	Log            *zap.Logger
	AllowedOrigins []string
	PayLimiter     gin.HandlerFunc

	Auth           *handlers.AuthHandler
	Catalog        *handlers.CatalogHandler
	Cart           *user.CartHandler
	Wishlist       *user.WishlistHandler
	Orders         *user.OrderHandler
	Checkout       *payement.CheckoutHandler
	AdminOrders    *admin.OrderHandler
	AdminPayments  *admin.PaymentHandler
	Analytics      *admin.AnalyticsHandler
	Reconciliation *admin.ReconciliationHandler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     h.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Auth
	api.POST("/auth/signin", h.Auth.Signin)
	api.POST("/auth/signup", h.Auth.Signup)
	api.POST("/auth/logout", h.Auth.Logout)

	// Catalogue
	api.GET("/products", h.Catalog.GetAllProducts)
	api.GET("/discounts", h.Catalog.GetDiscounts)

	auth := api.Group("")
	auth.Use(middleware.AuthRequired(h.Sessions, h.Log))

	// Panier
	auth.GET("/cart", h.Cart.GetCart)
	auth.POST("/cart/items", h.Cart.AddToCart)
	auth.PATCH("/cart/items/:itemId", h.Cart.UpdateQuantity)
	auth.DELETE("/cart/items/:itemId", h.Cart.RemoveFromCart)
	auth.DELETE("/cart", h.Cart.ClearCart)
	auth.GET("/cart/ws", h.Cart.CartWebSocket(user.NewUpgrader(h.AllowedOrigins)))

	// Wishlist
	auth.GET("/wishlist", h.Wishlist.GetWishlist)
	auth.POST("/wishlist/items", h.Wishlist.AddToWishlist)
	auth.DELETE("/wishlist/items/:itemId", h.Wishlist.RemoveFromWishlist)

	// Checkout et paiement
	auth.POST("/checkout", h.Checkout.Checkout)
	auth.GET("/checkout/:intentId", h.Checkout.GetCheckout)
	auth.DELETE("/checkout/:intentId", h.Checkout.CancelCheckout)
	pay := []gin.HandlerFunc{h.Checkout.Pay}
	if h.PayLimiter != nil {
		pay = append([]gin.HandlerFunc{h.PayLimiter}, pay...)
	}
	auth.POST("/checkout/:intentId/pay", pay...)

	// Commandes
	auth.GET("/orders", h.Orders.GetMyOrders)
	auth.GET("/orders/:id", h.Orders.GetOrder)

	// Admin
	adm := auth.Group("/admin")
	adm.Use(middleware.RequireAdmin)
	adm.GET("/orders", h.AdminOrders.GetAllOrders)
	adm.GET("/orders/stats", h.AdminOrders.GetOrderStats)
	adm.GET("/orders/status/:status", h.AdminOrders.GetOrdersByStatus)
	adm.PATCH("/orders/:id/status", h.AdminOrders.UpdateOrderStatus)
	adm.GET("/payments", h.AdminPayments.GetAllPayments)
	adm.GET("/payments/:id", h.AdminPayments.GetPayment)
	adm.POST("/payments/refund", h.AdminPayments.ProcessRefund)
	adm.GET("/analytics/monthly-revenue", h.Analytics.GetMonthlyRevenue)
	adm.GET("/analytics/most-ordered", h.Analytics.GetMostOrderedProducts)
	adm.GET("/analytics/category-stats", h.Analytics.GetCategoryStats)
	adm.GET("/reconciliation", h.Reconciliation.GetGaps)
	adm.POST("/reconciliation/:intentId/retry", h.Reconciliation.RetryGap)
	adm.DELETE("/catalog/cache", h.Catalog.InvalidateCache)
}
