// Package schema maps the logical sales fields onto workbook file names and
// header names. The default layout is embedded; a YAML override may replace
// any part of it.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Source describes one input file.
type Source struct {
	File string `yaml:"file"`
	// Sheet defaults to the first sheet of the workbook.
	Sheet string `yaml:"sheet,omitempty"`
	// SkipRows is the number of rows above the header row.
	SkipRows int `yaml:"skip_rows,omitempty"`
}

// SalesSource is one yearly sales file.
type SalesSource struct {
	Source `yaml:",inline"`
	Year   int `yaml:"year"`
}

// Columns names the header of each logical field.
type Columns struct {
	SaleID       string `yaml:"sale_id"`
	SaleDate     string `yaml:"sale_date"`
	Quantity     string `yaml:"quantity"`
	UnitPrice    string `yaml:"unit_price"`
	CustomerID   string `yaml:"customer_id"`
	StoreID      string `yaml:"store_id"`
	SKU          string `yaml:"sku"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	CustomerName string `yaml:"customer_name"`
	StoreName    string `yaml:"store_name"`
	ProductName  string `yaml:"product_name"`
	Brand        string `yaml:"brand"`
	ProductType  string `yaml:"product_type"`
}

type Schema struct {
	Sales     []SalesSource `yaml:"sales"`
	Customers Source        `yaml:"customers"`
	Stores    Source        `yaml:"stores"`
	Products  Source        `yaml:"products"`
	Columns   Columns       `yaml:"columns"`

	// DayFirst reads textual slash dates as DD/MM/YYYY.
	DayFirst bool `yaml:"day_first,omitempty"`
}

// Default returns the embedded layout.
func Default() Schema {
	var s Schema
	if err := yaml.Unmarshal(defaultYAML, &s); err != nil {
		panic(fmt.Sprintf("schema: invalid embedded default: %v", err))
	}
	return s
}

// Load reads an override file on top of the default layout. An empty path
// returns the default.
func Load(path string) (Schema, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to read schema file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Schema{}, fmt.Errorf("invalid schema file %s: %w", path, err)
	}
	return s, nil
}

func (s *Schema) Validate() error {
	if len(s.Sales) == 0 {
		return errors.New("at least one sales source is required")
	}
	years := make(map[int]bool, len(s.Sales))
	for i, src := range s.Sales {
		if src.File == "" {
			return fmt.Errorf("sales source %d: file is required", i)
		}
		if src.Year != 0 {
			if years[src.Year] {
				return fmt.Errorf("sales source %d: duplicate year %d", i, src.Year)
			}
			years[src.Year] = true
		}
	}
	for name, src := range map[string]Source{"customers": s.Customers, "stores": s.Stores, "products": s.Products} {
		if src.File == "" {
			return fmt.Errorf("%s: file is required", name)
		}
		if src.SkipRows < 0 {
			return fmt.Errorf("%s: skip_rows must be >= 0", name)
		}
	}
	required := map[string]string{
		"sale_date":     s.Columns.SaleDate,
		"quantity":      s.Columns.Quantity,
		"unit_price":    s.Columns.UnitPrice,
		"customer_id":   s.Columns.CustomerID,
		"store_id":      s.Columns.StoreID,
		"sku":           s.Columns.SKU,
		"first_name":    s.Columns.FirstName,
		"last_name":     s.Columns.LastName,
		"customer_name": s.Columns.CustomerName,
		"store_name":    s.Columns.StoreName,
		"product_name":  s.Columns.ProductName,
		"brand":         s.Columns.Brand,
		"product_type":  s.Columns.ProductType,
	}
	for field, col := range required {
		if col == "" {
			return fmt.Errorf("columns.%s is required", field)
		}
	}
	return nil
}

// Files lists every input file name in load order: sales first, then
// customers, stores and products.
func (s *Schema) Files() []string {
	out := make([]string, 0, len(s.Sales)+3)
	for _, src := range s.Sales {
		out = append(out, src.File)
	}
	return append(out, s.Customers.File, s.Stores.File, s.Products.File)
}
