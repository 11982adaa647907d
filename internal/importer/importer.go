package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	catalogsvc "storefront/internal/service/catalog"
	inventorysvc "storefront/internal/service/inventory"
)

type Catalog interface {
	UpsertCategory(ctx context.Context, c domain.Category) (*domain.Category, error)
	UpsertVariant(ctx context.Context, in catalogsvc.VariantInput) (*domain.Variant, bool, error)
}

type Stock interface {
	GetStock(ctx context.Context, variantID int64) (int64, error)
	ApplyMovement(ctx context.Context, in inventorysvc.MovementInput) (*inventorysvc.MovementResult, error)
}

const importActor = "importer"

// Report summarises one import run.
type Report struct {
	Created   int
	Updated   int
	Movements int
}

// CSVImporter reads variant rows and brings the catalog and stock levels in
// line with them. Columns: sku, product, name, description, price,
// weight_grams, categories (semicolon separated slugs), stock.
// A row with an empty product column belongs to the previous row's product.
// The stock column is the target quantity; the difference to the current
// level is booked as a restock or adjustment movement.
type CSVImporter struct {
	reader  *csv.Reader
	catalog Catalog
	stock   Stock
	logger  *zap.Logger

	categories map[string]int64
}

func NewCSVImporter(r io.Reader, catalog Catalog, stock Stock, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader:     csvr,
		catalog:    catalog,
		stock:      stock,
		logger:     logger,
		categories: make(map[string]int64),
	}
}

type csvRow struct {
	Line       int
	SKU        string
	Product    string
	Name       string
	Desc       string
	Price      decimal.Decimal
	Grams      int64
	Categories []string
	Stock      int64
	StockIsSet bool
}

// Run processes every row. It stops at the first invalid row; rows before it
// stay imported.
func (i *CSVImporter) Run(ctx context.Context) (Report, error) {
	var report Report
	headers, err := i.reader.Read()
	if err != nil {
		return report, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"sku", "price"} {
		if _, ok := index[required]; !ok {
			return report, fmt.Errorf("missing required column %q", required)
		}
	}

	var (
		product   string
		productID int64
		line      = 1
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return report, fmt.Errorf("read row %d: %w", line, err)
		}

		row, err := parseRow(record, index, line)
		if err != nil {
			return report, err
		}
		if row == nil {
			continue
		}

		// Continuation rows add variants to the current product.
		sameProduct := row.Product == "" || row.Product == product
		if row.Product == "" {
			if product == "" {
				return report, fmt.Errorf("row %d: product required", line)
			}
			row.Product = product
		}
		if !sameProduct {
			productID = 0
		}

		v, created, err := i.save(ctx, row, productID)
		if err != nil {
			return report, err
		}
		product, productID = row.Product, v.ProductID
		if created {
			report.Created++
		} else {
			report.Updated++
		}

		moved, err := i.syncStock(ctx, v.ID, row)
		if err != nil {
			return report, fmt.Errorf("row %d: stock for %s: %w", line, row.SKU, err)
		}
		if moved {
			report.Movements++
		}
	}

	i.logger.Info("import finished",
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("movements", report.Movements),
	)
	return report, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow, productID int64) (*domain.Variant, bool, error) {
	categoryIDs, err := i.categoryIDs(ctx, row.Categories)
	if err != nil {
		return nil, false, fmt.Errorf("row %d: %w", row.Line, err)
	}
	v, created, err := i.catalog.UpsertVariant(ctx, catalogsvc.VariantInput{
		ProductID:   productID,
		ProductName: row.Product,
		Description: row.Desc,
		SKU:         row.SKU,
		Name:        row.Name,
		Price:       row.Price,
		WeightGrams: row.Grams,
		CategoryIDs: categoryIDs,
	})
	if err != nil {
		return nil, false, fmt.Errorf("row %d: upsert variant %q: %w", row.Line, row.SKU, err)
	}
	return v, created, nil
}

func (i *CSVImporter) syncStock(ctx context.Context, variantID int64, row *csvRow) (bool, error) {
	if !row.StockIsSet {
		return false, nil
	}
	current, err := i.stock.GetStock(ctx, variantID)
	if err != nil {
		return false, err
	}
	delta := row.Stock - current
	if delta == 0 {
		return false, nil
	}
	kind := domain.MovementAdjustment
	if delta > 0 {
		kind = domain.MovementRestock
	}
	_, err = i.stock.ApplyMovement(ctx, inventorysvc.MovementInput{
		VariantID: variantID,
		Type:      kind,
		Delta:     delta,
		Reason:    "csv import",
		Actor:     importActor,
	})
	return err == nil, err
}

func (i *CSVImporter) categoryIDs(ctx context.Context, slugs []string) ([]int64, error) {
	ids := make([]int64, 0, len(slugs))
	for _, slug := range slugs {
		id, ok := i.categories[slug]
		if !ok {
			c, err := i.catalog.UpsertCategory(ctx, domain.Category{Slug: slug, Name: titleFromSlug(slug)})
			if err != nil {
				return nil, fmt.Errorf("upsert category %q: %w", slug, err)
			}
			id = c.ID
			i.categories[slug] = id
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func titleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	sku := pick(record, index, "sku")
	if sku == "" {
		return nil, nil
	}
	row := &csvRow{
		Line:    line,
		SKU:     sku,
		Product: pick(record, index, "product"),
		Name:    pick(record, index, "name"),
		Desc:    pick(record, index, "description"),
	}

	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil {
		return nil, fmt.Errorf("row %d: invalid price for %s: %w", line, sku, err)
	}
	row.Price = price

	if raw := pick(record, index, "weight_grams"); raw != "" {
		if row.Grams, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("row %d: invalid weight for %s: %w", line, sku, err)
		}
	}
	if raw := pick(record, index, "stock"); raw != "" {
		if row.Stock, err = strconv.ParseInt(raw, 10, 64); err != nil || row.Stock < 0 {
			return nil, fmt.Errorf("row %d: invalid stock %q for %s", line, raw, sku)
		}
		row.StockIsSet = true
	}
	for _, slug := range strings.Split(pick(record, index, "categories"), ";") {
		if slug = strings.ToLower(strings.TrimSpace(slug)); slug != "" {
			row.Categories = append(row.Categories, slug)
		}
	}
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
