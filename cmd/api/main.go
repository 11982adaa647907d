package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/notify"
	"storefront/internal/processor"
	"storefront/internal/repository"
	cartrepo "storefront/internal/repository/cart"
	categoryrepo "storefront/internal/repository/category"
	customerrepo "storefront/internal/repository/customer"
	inventoryrepo "storefront/internal/repository/inventory"
	orderrepo "storefront/internal/repository/order"
	promotionrepo "storefront/internal/repository/promotion"
	variantrepo "storefront/internal/repository/variant"
	cartsvc "storefront/internal/service/cart"
	catalogsvc "storefront/internal/service/catalog"
	customersvc "storefront/internal/service/customer"
	inventorysvc "storefront/internal/service/inventory"
	ordersvc "storefront/internal/service/order"
	paymentsvc "storefront/internal/service/payment"
	promotionsvc "storefront/internal/service/promotion"
	shippingsvc "storefront/internal/service/shipping"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	var notifier notify.Notifier = notify.NewLogNotifier(logger.Named("notify"))
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(notify.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		logger.Info("notifications via kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	dispatcher := notify.NewDispatcher(notifier, logger.Named("notify"))

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty, every authenticated request will be rejected")
	}
	if cfg.StripeAPIKey == "" || cfg.StripeWebhookSecret == "" {
		logger.Warn("stripe credentials incomplete, payment intents and webhooks will fail")
	}
	payments := processor.NewStripe(cfg.StripeAPIKey, cfg.StripeWebhookSecret)

	shippingService := shippingsvc.New(nil, nil, logger.Named("shipping"))
	if cfg.ShippingBaseURL != "" {
		client := shippingsvc.NewClient(cfg.ShippingBaseURL, cfg.ShippingTimeout)
		shippingService = shippingsvc.New(client, client, logger.Named("shipping"))
	} else {
		logger.Info("no shipping API configured, using manual rates")
	}

	txManager := repository.NewTxManager(db.NewGateway(dbpool))
	variantRepo := variantrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool)

	inventoryService := inventorysvc.New(txManager, inventoryrepo.NewPostgres(dbpool), dispatcher, logger.Named("inventory"))
	promotionService := promotionsvc.New(promotionrepo.NewPostgres(dbpool), dispatcher)
	orderService := ordersvc.New(ordersvc.Deps{
		Tx:         txManager,
		Orders:     orderrepo.NewPostgres(dbpool),
		Carts:      cartRepo,
		Promotions: promotionService,
		Stock:      inventoryService,
		Processor:  payments,
		Dispatcher: dispatcher,
		Currency:   cfg.Currency,
		Logger:     logger.Named("order"),
	})

	srv, err := httpserver.New(cfg.HTTPAddr, logger.Named("http"), dbpool, httpserver.Deps{
		Verifier:     auth.NewHMACVerifier(cfg.JWTSecret, cfg.JWTLeeway),
		CustomerSvc:  customersvc.New(customerrepo.NewPostgres(dbpool, logger), dispatcher, logger.Named("customer")),
		CatalogSvc:   catalogsvc.New(txManager, variantRepo, categoryrepo.NewPostgres(dbpool)),
		CartSvc:      cartsvc.New(cartRepo, variantRepo),
		OrderSvc:     orderService,
		PaymentSvc:   paymentsvc.New(txManager, payments, inventoryService, dispatcher, logger.Named("payment")),
		PromotionSvc: promotionService,
		InventorySvc: inventoryService,
		ShippingSvc:  shippingService,
		CORSOrigins:  cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
	dispatcher.Wait()
}
