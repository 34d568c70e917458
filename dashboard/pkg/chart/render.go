package chart

import (
	"cmp"
	"slices"
	"time"

	"github.com/malbeclabs/salesdash/ingest/pkg/sales"
)

// ID names one of the six charts.
type ID int

const (
	ByYear ID = iota
	ByCustomer
	ByProduct
	ByStore
	OverTime
	ByBrand
	Count
)

// IDs lists the charts in display order.
func IDs() []ID {
	return []ID{ByYear, ByCustomer, ByProduct, ByStore, OverTime, ByBrand}
}

func (id ID) String() string {
	switch id {
	case ByYear:
		return "year"
	case ByCustomer:
		return "customer"
	case ByProduct:
		return "product"
	case ByStore:
		return "store"
	case OverTime:
		return "time"
	case ByBrand:
		return "brand"
	default:
		return "unknown"
	}
}

// ParseID is the inverse of ID.String.
func ParseID(s string) (ID, bool) {
	for _, id := range IDs() {
		if id.String() == s {
			return id, true
		}
	}
	return 0, false
}

// Title is the heading of a chart with data.
func (id ID) Title() string {
	switch id {
	case ByYear:
		return "Sales by Year"
	case ByCustomer:
		return "Sales by Customer"
	case ByProduct:
		return "Sales by Product"
	case ByStore:
		return "Sales by Store"
	case OverTime:
		return "Sales over Time"
	case ByBrand:
		return "Sales by Brand"
	default:
		return ""
	}
}

const NoDataTitle = "No data found"

// Set holds one figure per chart, indexed by ID.
type Set [Count]Figure

// Placeholder is the figure shown in place of every chart when no rows match.
func Placeholder() Figure {
	return Figure{Data: []Trace{}, Layout: Layout{Title: Text{Text: NoDataTitle}}}
}

// Render builds the six charts for already filtered rows. An empty input
// yields six placeholders and no aggregation.
func Render(rows []sales.Row) Set {
	var set Set
	if len(rows) == 0 {
		for i := range set {
			set[i] = Placeholder()
		}
		return set
	}
	for _, id := range IDs() {
		set[id] = Build(id, rows)
	}
	return set
}

// Build renders a single chart for non-empty rows.
func Build(id ID, rows []sales.Row) Figure {
	if len(rows) == 0 {
		return Placeholder()
	}
	switch id {
	case ByYear:
		return bar(id, rows, "Year", func(r sales.Row) any { return r.Year })
	case ByCustomer:
		return bar(id, rows, "Customer", func(r sales.Row) any { return label(r.CustomerName) })
	case ByProduct:
		return productBar(rows)
	case ByStore:
		return storeBar(rows)
	case OverTime:
		return area(rows)
	case ByBrand:
		return pie(rows)
	default:
		return Placeholder()
	}
}

// bar plots one bar segment per row. Rows sharing an x value stack.
func bar(id ID, rows []sales.Row, xTitle string, x func(sales.Row) any) Figure {
	tr := Trace{Type: "bar", X: make([]any, len(rows)), Y: make([]any, len(rows))}
	for i, r := range rows {
		tr.X[i] = x(r)
		tr.Y[i] = r.LineTotal
	}
	return Figure{
		Data: []Trace{tr},
		Layout: Layout{
			Title:   Text{Text: id.Title()},
			BarMode: "relative",
			XAxis:   axis(xTitle),
			YAxis:   axis("Sales"),
		},
	}
}

func productBar(rows []sales.Row) Figure {
	tr := Trace{Type: "bar", Orientation: "h", X: make([]any, len(rows)), Y: make([]any, len(rows))}
	for i, r := range rows {
		tr.X[i] = r.LineTotal
		tr.Y[i] = label(r.ProductName)
	}
	return Figure{
		Data: []Trace{tr},
		Layout: Layout{
			Title:   Text{Text: ByProduct.Title()},
			BarMode: "relative",
			XAxis:   axis("Sales"),
			YAxis:   axis("Product"),
		},
	}
}

// StoreTotal is the summed line total of one store.
type StoreTotal struct {
	Store string
	Total float64
}

// StoreTotals sums line totals per store name, ascending by total. Rows
// without a store are left out. Equal totals keep store name order.
func StoreTotals(rows []sales.Row) []StoreTotal {
	sums := make(map[string]float64)
	for _, r := range rows {
		if r.StoreName == "" {
			continue
		}
		sums[r.StoreName] += r.LineTotal
	}
	out := make([]StoreTotal, 0, len(sums))
	for store, total := range sums {
		out = append(out, StoreTotal{Store: store, Total: total})
	}
	slices.SortFunc(out, func(a, b StoreTotal) int {
		return cmp.Or(cmp.Compare(a.Total, b.Total), cmp.Compare(a.Store, b.Store))
	})
	return out
}

func storeBar(rows []sales.Row) Figure {
	totals := StoreTotals(rows)
	tr := Trace{Type: "bar", Orientation: "h", X: make([]any, len(totals)), Y: make([]any, len(totals))}
	for i, st := range totals {
		tr.X[i] = st.Total
		tr.Y[i] = st.Store
	}
	return Figure{
		Data: []Trace{tr},
		Layout: Layout{
			Title: Text{Text: ByStore.Title()},
			XAxis: axis("Sales"),
			YAxis: &Axis{Title: Text{Text: "Store"}, Type: "category"},
		},
	}
}

// area plots line totals over sale date as a filled line, in date order.
func area(rows []sales.Row) Figure {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b sales.Row) int { return a.SaleDate.Compare(b.SaleDate) })

	tr := Trace{Type: "scatter", Mode: "lines", StackGroup: "1", X: make([]any, len(sorted)), Y: make([]any, len(sorted))}
	for i, r := range sorted {
		tr.X[i] = formatDate(r.SaleDate)
		tr.Y[i] = r.LineTotal
	}
	return Figure{
		Data: []Trace{tr},
		Layout: Layout{
			Title: Text{Text: OverTime.Title()},
			XAxis: &Axis{Title: Text{Text: "Date"}, Type: "date"},
			YAxis: axis("Sales"),
		},
	}
}

// pie passes one slice per row; Plotly sums rows sharing a brand.
func pie(rows []sales.Row) Figure {
	tr := Trace{Type: "pie"}
	for _, r := range rows {
		if r.Brand == "" {
			continue
		}
		tr.Labels = append(tr.Labels, r.Brand)
		tr.Values = append(tr.Values, r.LineTotal)
	}
	return Figure{
		Data:   []Trace{tr},
		Layout: Layout{Title: Text{Text: ByBrand.Title()}},
	}
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}
