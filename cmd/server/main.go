package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gobazar/bazar-backend/internal/admin"
	"github.com/gobazar/bazar-backend/internal/auth"
	"github.com/gobazar/bazar-backend/internal/catalog"
	"github.com/gobazar/bazar-backend/internal/config"
	"github.com/gobazar/bazar-backend/internal/delivery"
	"github.com/gobazar/bazar-backend/internal/events"
	"github.com/gobazar/bazar-backend/internal/inventory"
	"github.com/gobazar/bazar-backend/internal/observability"
	"github.com/gobazar/bazar-backend/internal/orders"
	"github.com/gobazar/bazar-backend/internal/payments"
	"github.com/gobazar/bazar-backend/internal/reviews"
	"github.com/gobazar/bazar-backend/internal/storage"
	"github.com/gobazar/bazar-backend/internal/vendors"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer")
		}
	}()

	mp, err := observability.InitMetrics(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down meter")
		}
	}()

	db, err := storage.Connect(ctx, cfg.DatabaseDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Pool.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	// Repositories.
	userRepo := auth.NewPostgresRepository(db.Pool)
	orderRepo := orders.NewPostgresRepository(db.Pool)
	ledger := inventory.NewPostgresLedger(db.Pool)
	catalogRepo := catalog.NewPostgresRepository(db)
	vendorRepo := vendors.NewPostgresRepository(db)
	adminRepo := admin.NewPostgresRepository(db)
	deliveryRepo := delivery.NewPostgresRepository(db)
	reviewRepo := reviews.NewPostgresRepository(db)

	// Use cases.
	authUC := auth.NewUseCase(userRepo, cfg.JWTSecret, log)
	guard := orders.NewRedisIdempotencyGuard(rdb)
	orderUC := orders.NewUseCase(db, orderRepo, ledger, guard, producer, log)
	gateway := payments.NewSSLCommerzGateway(cfg.GatewayBaseURL, cfg.GatewayStoreID, cfg.GatewayStorePass)
	urls := payments.URLs{PublicBase: cfg.PublicBaseURL, FrontendBase: cfg.FrontendBaseURL}
	paymentUC := payments.NewUseCase(db, orderRepo, ledger, gateway, userRepo, producer, urls, log)
	vendorUC := vendors.NewUseCase(vendorRepo, log)
	catalogUC := catalog.NewUseCase(catalogRepo, vendorUC, log)
	adminUC := admin.NewUseCase(adminRepo, authUC, vendorUC, log)
	deliveryUC := delivery.NewUseCase(deliveryRepo, userRepo, log)
	reviewUC := reviews.NewUseCase(reviewRepo, catalogUC)

	// Handlers.
	authHandler := auth.NewHandler(authUC, log)
	orderHandler := orders.NewHandler(orderUC, log)
	paymentHandler := payments.NewHandler(paymentUC, urls, log)
	catalogHandler := catalog.NewHandler(catalogUC)
	vendorHandler := vendors.NewHandler(vendorUC)
	adminHandler := admin.NewHandler(adminUC)
	deliveryHandler := delivery.NewHandler(deliveryUC)
	reviewHandler := reviews.NewHandler(reviewUC)

	sweeper := payments.NewSweeper(paymentUC,
		time.Duration(cfg.PendingOrderTTLMinutes)*time.Minute,
		time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
		log)
	go sweeper.Run(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Public.
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/products", catalogHandler.ListProducts)
	api.GET("/products/:id", catalogHandler.GetProduct)
	api.GET("/products/:id/reviews", reviewHandler.ListByProduct)
	api.GET("/categories", catalogHandler.ListCategories)
	api.GET("/track/:trackingId", orderHandler.Track)

	// Gateway callbacks: providers POST, but some redirect the customer via
	// GET, so both are registered.
	api.POST("/payments/success/:tranId", paymentHandler.Success)
	api.GET("/payments/success/:tranId", paymentHandler.Success)
	api.POST("/payments/fail/:tranId", paymentHandler.Fail)
	api.GET("/payments/fail/:tranId", paymentHandler.Fail)
	api.POST("/payments/cancel/:tranId", paymentHandler.Cancel)
	api.GET("/payments/cancel/:tranId", paymentHandler.Cancel)

	// Authenticated.
	authed := api.Group("", auth.RequireAuth(authUC))

	authed.PUT("/auth/profile", authHandler.UpdateProfile)
	authed.PUT("/auth/password", authHandler.ChangePassword)
	authed.GET("/auth/addresses", authHandler.ListAddresses)
	authed.POST("/auth/addresses", authHandler.AddAddress)
	authed.DELETE("/auth/addresses/:addressId", authHandler.DeleteAddress)
	authed.PUT("/auth/addresses/:addressId/default", authHandler.SetDefaultAddress)

	authed.POST("/orders", orderHandler.Create)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/my", orderHandler.My)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.POST("/orders/:id/cancel", orderHandler.Cancel)
	authed.POST("/orders/:id/checkout-session", paymentHandler.CreateCheckoutSession)
	authed.PATCH("/orders/:id/status", auth.RequireRoles(auth.RoleAdmin, auth.RoleVendor), orderHandler.UpdateStatus)
	authed.DELETE("/orders/:id", auth.RequireRoles(auth.RoleAdmin), orderHandler.Delete)

	authed.POST("/products/:id/reviews", reviewHandler.Create)
	authed.DELETE("/reviews/:id", reviewHandler.Delete)

	vendor := authed.Group("/vendor", auth.RequireRoles(auth.RoleVendor, auth.RoleAdmin))
	vendor.GET("/profile", vendorHandler.MyProfile)
	vendor.PUT("/profile", vendorHandler.UpdateProfile)
	vendor.GET("/stats", vendorHandler.MyStats)
	vendor.GET("/orders", vendorHandler.MyOrders)
	vendor.GET("/products", catalogHandler.MyProducts)
	vendor.POST("/products", catalogHandler.CreateProduct)
	vendor.PUT("/products/:id", catalogHandler.UpdateProduct)
	vendor.DELETE("/products/:id", catalogHandler.DeleteProduct)

	adminGroup := authed.Group("/admin", auth.RequireRoles(auth.RoleAdmin))
	adminGroup.GET("/dashboard", adminHandler.Dashboard)
	adminGroup.GET("/users", adminHandler.ListUsers)
	adminGroup.POST("/users", adminHandler.CreateUser)
	adminGroup.PATCH("/users/:id/role", adminHandler.UpdateUserRole)
	adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
	adminGroup.POST("/vendors", adminHandler.CreateVendor)
	adminGroup.GET("/vendors", vendorHandler.List)
	adminGroup.GET("/delivery-staff", adminHandler.ListDeliveryStaff)
	adminGroup.POST("/categories", catalogHandler.CreateCategory)
	adminGroup.PUT("/categories/:id", catalogHandler.UpdateCategory)
	adminGroup.DELETE("/categories/:id", catalogHandler.DeleteCategory)
	adminGroup.POST("/orders/:id/assign", deliveryHandler.Assign)

	deliveryGroup := authed.Group("/delivery", auth.RequireRoles(auth.RoleDelivery, auth.RoleAdmin))
	deliveryGroup.GET("/orders", deliveryHandler.MyDeliveries)
	deliveryGroup.PATCH("/orders/:id/status", deliveryHandler.UpdateStatus)
	deliveryGroup.GET("/orders/:id/tracking", deliveryHandler.Tracking)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
