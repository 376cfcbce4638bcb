package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"usha_storefront/internal/api"
	"usha_storefront/internal/cache"
	"usha_storefront/internal/cart"
	"usha_storefront/internal/checkout"
	"usha_storefront/internal/config"
	"usha_storefront/internal/database"
	"usha_storefront/internal/handlers"
	"usha_storefront/internal/handlers/admin"
	"usha_storefront/internal/handlers/payement"
	"usha_storefront/internal/handlers/user"
	"usha_storefront/internal/middleware"
	"usha_storefront/internal/orders"
	"usha_storefront/internal/payment"
	"usha_storefront/internal/reconciliation"
	"usha_storefront/internal/routes"
	"usha_storefront/internal/services"
	"usha_storefront/internal/session"
	"usha_storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"go.uber.org/zap"
)

const (
	signedURLDuration = time.Hour
	flowSweepInterval = time.Minute
	flowMaxAge        = 30 * time.Minute
	idleUserMaxAge    = 2 * time.Hour
	shutdownTimeout   = 15 * time.Second
)

func main() {
	config.Load()
	cfg := config.FromEnv()

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.SessionSecret == "" {
		logger.Fatal("❌ SESSION_SECRET manquant dans .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("❌ Connexion aux bases impossible", zap.Error(err))
	}
	defer stores.Close()

	r, auditor := buildRouter(ctx, cfg, stores, logger)
	defer auditor.Wait()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("🚀 Serveur lancé", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("❌ Serveur arrêté", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 Arrêt du serveur...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Arrêt forcé", zap.Error(err))
	}
}

func newLogger(cfg config.Settings) (*zap.Logger, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// buildRouter assemble les services ; chaque store absent bascule sur sa variante en mémoire
func buildRouter(ctx context.Context, cfg config.Settings, stores *database.Stores, logger *zap.Logger) (*gin.Engine, *utils.Auditor) {
	client := api.New(api.Options{
		BaseURL: cfg.DataServiceURL,
		Timeout: cfg.APITimeout,
		Logger:  logger,
	})
	sessions := session.NewStore(cfg.SessionSecret, cfg.CookieSecure || cfg.IsProduction(), cfg.SessionMaxAge)
	base := &handlers.Base{Sessions: sessions, Log: logger.Named("http")}

	mailer := utils.NewMailer(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}, logger)
	notifier := utils.NewNotifier(mailer, cfg.OpsEmail, logger)
	auditor := utils.NewAuditor(stores.Scylla, logger)

	// Redis : synchronisation du panier, cache catalogue, rate limit
	var (
		redisCache *cache.Redis
		cartSync   cart.Notifier
		subscriber user.CartSubscriber
		payLimiter gin.HandlerFunc
	)
	if stores.Redis != nil {
		redisCache = cache.NewRedis(stores.Redis)
		cartSync = redisCache
		subscriber = redisCache
		payLimiter = middleware.PayRateLimit(redisCache, cfg.PayRateLimit, cfg.PayRateWindow, logger)
	}
	catalog := cache.NewCatalog(client, redisCache, logger)

	var images handlers.ImageSigner
	if stores.MinIO != nil {
		images = services.NewImageSigner(stores.MinIO, cfg.MinIOBucket, signedURLDuration, logger)
	}

	var index orders.Index
	if stores.Elastic != nil {
		index = services.NewOrderIndex(stores.Elastic, cfg.ElasticIndex, logger)
	}

	// ScyllaDB : écarts de réconciliation
	var gapStore reconciliation.Store = reconciliation.NewMemoryStore()
	if stores.Scylla != nil {
		gapStore = reconciliation.NewScyllaStore(stores.Scylla)
	}
	gaps := reconciliation.NewService(gapStore, client, notifier, logger)

	// Stripe : sans clé, le checkout reste possible mais /pay répond 503
	var provider payment.Provider
	if cfg.StripeSecretKey != "" {
		stripe.Key = cfg.StripeSecretKey
		provider = payment.NewStripeProvider(logger)
		logger.Info("✅ Stripe initialisé")
	} else {
		logger.Warn("⚠️ STRIPE_SECRET_KEY absent : paiement désactivé")
	}
	flows := payment.NewRegistry(provider, client, gaps, logger)
	go flows.Run(ctx, flowSweepInterval, flowMaxAge)

	carts := cart.NewRegistry(client, cartSync, logger)
	go carts.Run(ctx, flowSweepInterval, idleUserMaxAge)
	orderService := orders.NewService(client, notifier, index, logger)
	viewers := orders.NewViewers(orderService)
	go viewers.Run(ctx, flowSweepInterval, idleUserMaxAge)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	routes.RegisterRoutes(r, routes.Handlers{
		Sessions:       sessions,
		Log:            logger,
		AllowedOrigins: cfg.AllowedOrigins,
		PayLimiter:     payLimiter,

		Auth: &handlers.AuthHandler{
			Base:    base,
			Auth:    client,
			Auditor: auditor,
			Caches:  []handlers.UserCache{carts, viewers},
		},
		Catalog:  &handlers.CatalogHandler{Base: base, Catalog: catalog, Images: images},
		Cart:     &user.CartHandler{Base: base, Carts: carts, Sync: subscriber},
		Wishlist: &user.WishlistHandler{Base: base, Wishlist: client},
		Orders:   &user.OrderHandler{Base: base, Orders: orderService},
		Checkout: &payement.CheckoutHandler{
			Base:      base,
			Carts:     carts,
			Initiator: checkout.NewInitiator(client, logger),
			Flows:     flows,
		},
		AdminOrders: &admin.OrderHandler{
			Base:    base,
			Orders:  orderService,
			Viewers: viewers,
			Auditor: auditor,
		},
		AdminPayments:  &admin.PaymentHandler{Base: base, Payments: client, Auditor: auditor},
		Analytics:      &admin.AnalyticsHandler{Base: base, Analytics: client},
		Reconciliation: &admin.ReconciliationHandler{Base: base, Gaps: gaps, Auditor: auditor},
	})
	return r, auditor
}
