package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
	"storefront/internal/repository"
	categoryrepo "storefront/internal/repository/category"
	inventoryrepo "storefront/internal/repository/inventory"
	promotionrepo "storefront/internal/repository/promotion"
	variantrepo "storefront/internal/repository/variant"
	"storefront/internal/seed"
	catalogsvc "storefront/internal/service/catalog"
	inventorysvc "storefront/internal/service/inventory"
	promotionsvc "storefront/internal/service/promotion"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	tx := repository.NewTxManager(db.NewGateway(pool))
	catalog := catalogsvc.New(tx, variantrepo.NewPostgres(pool, logger), categoryrepo.NewPostgres(pool))
	stock := inventorysvc.New(tx, inventoryrepo.NewPostgres(pool), nil, logger)
	promos := promotionsvc.New(promotionrepo.NewPostgres(pool), nil)

	if err := seed.Apply(ctx, catalog, stock, promos); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
	logger.Info("seed applied")
}
