package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/importer"
	"storefront/internal/logging"
	"storefront/internal/repository"
	categoryrepo "storefront/internal/repository/category"
	inventoryrepo "storefront/internal/repository/inventory"
	variantrepo "storefront/internal/repository/variant"
	catalogsvc "storefront/internal/service/catalog"
	inventorysvc "storefront/internal/service/inventory"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to variant CSV file")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	tx := repository.NewTxManager(db.NewGateway(pool))
	catalog := catalogsvc.New(tx, variantrepo.NewPostgres(pool, logger), categoryrepo.NewPostgres(pool))
	stock := inventorysvc.New(tx, inventoryrepo.NewPostgres(pool), nil, logger)
	imp := importer.NewCSVImporter(f, catalog, stock, logger)

	start := time.Now()
	report, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}

	fmt.Printf("Imported %d new and %d updated variants (%d stock movements) in %s\n",
		report.Created, report.Updated, report.Movements, time.Since(start).Truncate(time.Millisecond))
}
