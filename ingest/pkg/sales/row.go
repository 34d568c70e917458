// Package sales defines the typed merged sales row shared by the dashboard.
package sales

import (
	"iter"
	"time"
)

// Row is one merged sale. String attributes coming from a reference table are
// empty when the sale's key had no match there.
type Row struct {
	SaleID     string    `json:"sale_id,omitempty"`
	CustomerID string    `json:"customer_id"`
	StoreID    string    `json:"store_id"`
	SKU        string    `json:"sku"`
	Quantity   float64   `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	SaleDate   time.Time `json:"sale_date"`
	Year       int       `json:"year"`
	LineTotal  float64   `json:"line_total"`

	CustomerName string `json:"customer_name,omitempty"`
	StoreName    string `json:"store_name,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
	Brand        string `json:"brand,omitempty"`
	ProductType  string `json:"product_type,omitempty"`

	// SourceYear is the year label of the file the row was read from.
	SourceYear int `json:"source_year"`
}

// Field selects one string attribute of a row.
type Field int

const (
	FieldProductType Field = iota
	FieldBrand
	FieldProductName
	FieldStoreName
	FieldCustomerName
)

func (f Field) String() string {
	switch f {
	case FieldProductType:
		return "product_type"
	case FieldBrand:
		return "brand"
	case FieldProductName:
		return "product_name"
	case FieldStoreName:
		return "store_name"
	case FieldCustomerName:
		return "customer_name"
	default:
		return "unknown"
	}
}

// Get returns the value of field f.
func (r *Row) Get(f Field) string {
	switch f {
	case FieldProductType:
		return r.ProductType
	case FieldBrand:
		return r.Brand
	case FieldProductName:
		return r.ProductName
	case FieldStoreName:
		return r.StoreName
	case FieldCustomerName:
		return r.CustomerName
	default:
		return ""
	}
}

// Slice adapts a slice of rows to a sequence.
func Slice(rows []Row) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, r := range rows {
			if !yield(r) {
				return
			}
		}
	}
}
