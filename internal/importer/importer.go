// Package importer loads catalog CSV exports into the products table.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog rows and inserts or updates products. A row with
// an empty key continues the previous product and may only carry an image.
type CSVImporter struct {
	reader          *csv.Reader
	productRepo     ProductWriter
	defaultCurrency string
}

func NewCSVImporter(r io.Reader, repo ProductWriter, defaultCurrency string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:          csvr,
		productRepo:     repo,
		defaultCurrency: defaultCurrency,
	}
}

type csvRow struct {
	line      int
	ID        string
	Key       string
	Name      string
	Desc      string
	SKU       string
	Price     string
	Currency  string
	Stock     string
	Sizes     []string
	Colors    []string
	ImageURLs []string
}

// Run parses CSV rows and upserts products grouped by product key.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"key", "name", "sku", "price"} {
		if _, ok := index[required]; !ok {
			return 0, fmt.Errorf("missing column %q", required)
		}
	}

	var (
		current  *csvRow
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		row.line = line

		if row.Key != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		if current != nil && len(row.ImageURLs) > 0 {
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Name == "" || row.SKU == "" || row.Price == "" {
		return fmt.Errorf("row %d: product %q missing name, sku or price", row.line, row.Key)
	}
	if row.ID != "" {
		if _, err := uuid.Parse(row.ID); err != nil {
			return fmt.Errorf("row %d: invalid id for key %q: %s", row.line, row.Key, row.ID)
		}
	}
	price, err := decimal.NewFromString(row.Price)
	if err != nil || !price.IsPositive() {
		return fmt.Errorf("row %d: invalid price for key %q: %s", row.line, row.Key, row.Price)
	}
	stock := 0
	if row.Stock != "" {
		stock, err = strconv.Atoi(row.Stock)
		if err != nil || stock < 0 {
			return fmt.Errorf("row %d: invalid stock for key %q: %s", row.line, row.Key, row.Stock)
		}
	}
	currency := row.Currency
	if currency == "" {
		currency = i.defaultCurrency
	}

	attrs := map[string]interface{}{}
	if len(row.ImageURLs) > 0 {
		attrs["images"] = row.ImageURLs
	}
	if len(row.Sizes) > 0 {
		attrs["sizes"] = row.Sizes
	}
	if len(row.Colors) > 0 {
		attrs["colors"] = row.Colors
	}

	p := domain.Product{
		ID:          row.ID,
		Key:         row.Key,
		SKU:         row.SKU,
		Name:        row.Name,
		Description: row.Desc,
		PriceCents:  domain.ToCents(price),
		Currency:    strings.ToUpper(currency),
		Stock:       stock,
		Attributes:  attrs,
	}

	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Key, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	key := pick(record, index, "key")
	imageURL := pick(record, index, "image")
	if key == "" && imageURL == "" {
		return nil
	}

	row := &csvRow{
		ID:       pick(record, index, "id"),
		Key:      key,
		Name:     pick(record, index, "name"),
		Desc:     pick(record, index, "description"),
		SKU:      pick(record, index, "sku"),
		Price:    pick(record, index, "price"),
		Currency: pick(record, index, "currency"),
		Stock:    pick(record, index, "stock"),
		Sizes:    splitList(pick(record, index, "sizes")),
		Colors:   splitList(pick(record, index, "colors")),
	}
	if imageURL != "" {
		row.ImageURLs = []string{imageURL}
	}
	return row
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
