// Package filter narrows the merged sales rows by the five dashboard
// selections and lists the options each dropdown may offer.
//
// Selections are ordered: product type, brands, product, stores, customer.
// An unset selection places no restriction. The options of a dropdown depend
// only on the selections before it.
package filter

import (
	"iter"
	"slices"
	"strings"

	"github.com/malbeclabs/salesdash/ingest/pkg/sales"
)

// Criteria is the state of the five dropdowns. Empty fields are unset.
type Criteria struct {
	Type     string   `json:"type,omitempty"`
	Brands   []string `json:"brands,omitempty"`
	Product  string   `json:"product,omitempty"`
	Stores   []string `json:"stores,omitempty"`
	Customer string   `json:"customer,omitempty"`
}

// Stage is one position in the selection order.
type Stage int

const (
	StageType Stage = iota
	StageBrands
	StageProduct
	StageStores
	StageCustomer
	numStages
)

// Stages lists every stage in order.
func Stages() []Stage {
	return []Stage{StageType, StageBrands, StageProduct, StageStores, StageCustomer}
}

func (s Stage) String() string {
	switch s {
	case StageType:
		return "type"
	case StageBrands:
		return "brands"
	case StageProduct:
		return "product"
	case StageStores:
		return "stores"
	case StageCustomer:
		return "customer"
	default:
		return "unknown"
	}
}

// ParseStage is the inverse of Stage.String.
func ParseStage(s string) (Stage, bool) {
	for _, st := range Stages() {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// Field is the row attribute a stage filters and lists.
func (s Stage) Field() sales.Field {
	switch s {
	case StageType:
		return sales.FieldProductType
	case StageBrands:
		return sales.FieldBrand
	case StageProduct:
		return sales.FieldProductName
	case StageStores:
		return sales.FieldStoreName
	default:
		return sales.FieldCustomerName
	}
}

// predicate returns the test for stage s, or nil when its selection is unset.
func (c Criteria) predicate(s Stage) func(*sales.Row) bool {
	one := func(f sales.Field, want string) func(*sales.Row) bool {
		if want == "" {
			return nil
		}
		return func(r *sales.Row) bool { return r.Get(f) == want }
	}
	set := func(f sales.Field, want []string) func(*sales.Row) bool {
		in := make(map[string]struct{}, len(want))
		for _, v := range want {
			// Null attributes read as "", so a blank member would select them.
			if v != "" {
				in[v] = struct{}{}
			}
		}
		if len(in) == 0 {
			return nil
		}
		return func(r *sales.Row) bool {
			_, ok := in[r.Get(f)]
			return ok
		}
	}
	switch s {
	case StageType:
		return one(s.Field(), c.Type)
	case StageBrands:
		return set(s.Field(), c.Brands)
	case StageProduct:
		return one(s.Field(), c.Product)
	case StageStores:
		return set(s.Field(), c.Stores)
	case StageCustomer:
		return one(s.Field(), c.Customer)
	default:
		return nil
	}
}

// Upstream returns the criteria with every selection from stage s onwards
// cleared.
func (c Criteria) Upstream(s Stage) Criteria {
	var out Criteria
	if s > StageType {
		out.Type = c.Type
	}
	if s > StageBrands {
		out.Brands = c.Brands
	}
	if s > StageProduct {
		out.Product = c.Product
	}
	if s > StageStores {
		out.Stores = c.Stores
	}
	if s > StageCustomer {
		out.Customer = c.Customer
	}
	return out
}

// Normalize trims every selection and drops blank members of the
// multi-selections. A blank selection places no restriction.
func (c Criteria) Normalize() Criteria {
	many := func(vs []string) []string {
		var out []string
		for _, v := range vs {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return Criteria{
		Type:     strings.TrimSpace(c.Type),
		Brands:   many(c.Brands),
		Product:  strings.TrimSpace(c.Product),
		Stores:   many(c.Stores),
		Customer: strings.TrimSpace(c.Customer),
	}
}

// IsZero reports whether no selection is set.
func (c Criteria) IsZero() bool {
	return c.Type == "" && len(c.Brands) == 0 && c.Product == "" && len(c.Stores) == 0 && c.Customer == ""
}

// Select yields the rows matching every set selection, in input order.
func Select(rows iter.Seq[sales.Row], c Criteria) iter.Seq[sales.Row] {
	var preds []func(*sales.Row) bool
	for s := range numStages {
		if p := c.predicate(s); p != nil {
			preds = append(preds, p)
		}
	}
	return func(yield func(sales.Row) bool) {
	next:
		for r := range rows {
			for _, p := range preds {
				if !p(&r) {
					continue next
				}
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Apply returns the rows matching every set selection, in input order.
// Applying the same criteria to its own result returns the same rows.
func Apply(rows iter.Seq[sales.Row], c Criteria) []sales.Row {
	return slices.Collect(Select(rows, c))
}

// Options returns the distinct non-empty values of stage s's field over the
// rows matching the selections before s, sorted ascending.
func Options(rows iter.Seq[sales.Row], c Criteria, s Stage) []string {
	return distinct(Select(rows, c.Upstream(s)), s.Field())
}

func ProductTypes(rows iter.Seq[sales.Row]) []string {
	return Options(rows, Criteria{}, StageType)
}

func Brands(rows iter.Seq[sales.Row], c Criteria) []string {
	return Options(rows, c, StageBrands)
}

func Products(rows iter.Seq[sales.Row], c Criteria) []string {
	return Options(rows, c, StageProduct)
}

func Stores(rows iter.Seq[sales.Row], c Criteria) []string {
	return Options(rows, c, StageStores)
}

func Customers(rows iter.Seq[sales.Row], c Criteria) []string {
	return Options(rows, c, StageCustomer)
}

func distinct(rows iter.Seq[sales.Row], f sales.Field) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for r := range rows {
		v := r.Get(f)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
