package filter_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/salesdash/dashboard/pkg/filter"
	"github.com/malbeclabs/salesdash/ingest/pkg/sales"
)

func scenario() []sales.Row {
	return []sales.Row{
		{ProductType: "A", Brand: "X", ProductName: "Widget", StoreName: "S1", CustomerName: "Ana Silva", LineTotal: 10},
		{ProductType: "A", Brand: "Y", ProductName: "Gadget", StoreName: "S2", CustomerName: "Bruno Costa", LineTotal: 20},
		{ProductType: "B", Brand: "X", ProductName: "Gizmo", StoreName: "S1", CustomerName: "Ana Silva", LineTotal: 5},
	}
}

// wide has unmatched rows (empty attributes) and repeated values.
func wide() []sales.Row {
	rows := scenario()
	rows = append(rows,
		sales.Row{ProductType: "A", Brand: "X", ProductName: "Widget", StoreName: "S3", CustomerName: "Caio Lima", LineTotal: 7},
		sales.Row{ProductType: "", Brand: "", ProductName: "", StoreName: "S2", CustomerName: "", LineTotal: 3},
		sales.Row{ProductType: "C", Brand: "Z", ProductName: "Doohickey", StoreName: "", CustomerName: "Bruno Costa", LineTotal: 1},
	)
	return rows
}

func totals(rows []sales.Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.LineTotal
	}
	return out
}

func TestFilter_Scenario(t *testing.T) {
	t.Parallel()

	rows := scenario()
	all := sales.Slice(rows)

	byType := filter.Apply(all, filter.Criteria{Type: "A"})
	require.Len(t, byType, 2)
	require.Equal(t, []string{"X", "Y"}, filter.Brands(all, filter.Criteria{Type: "A"}))

	byBrand := filter.Apply(all, filter.Criteria{Type: "A", Brands: []string{"X"}})
	require.Equal(t, []float64{10}, totals(byBrand))
}

func TestFilter_Apply(t *testing.T) {
	t.Parallel()

	all := sales.Slice(wide())
	tests := []struct {
		name string
		c    filter.Criteria
		want []float64
	}{
		{"no selection passes everything", filter.Criteria{}, []float64{10, 20, 5, 7, 3, 1}},
		{"type", filter.Criteria{Type: "A"}, []float64{10, 20, 7}},
		{"brand set", filter.Criteria{Brands: []string{"Y", "Z"}}, []float64{20, 1}},
		{"product", filter.Criteria{Product: "Widget"}, []float64{10, 7}},
		{"store set", filter.Criteria{Stores: []string{"S2"}}, []float64{20, 3}},
		{"customer", filter.Criteria{Customer: "Bruno Costa"}, []float64{20, 1}},
		{"conjunction", filter.Criteria{Type: "A", Brands: []string{"X"}, Stores: []string{"S1", "S3"}, Customer: "Caio Lima"}, []float64{7}},
		{"no match", filter.Criteria{Type: "B", Brands: []string{"Y"}}, []float64{}},
		{"unknown value", filter.Criteria{Product: "Nope"}, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := filter.Apply(all, tt.c)
			require.Equal(t, tt.want, totals(got))

			// Filtering the result again changes nothing.
			again := filter.Apply(sales.Slice(got), tt.c)
			require.Equal(t, got, again)
		})
	}
}

func TestFilter_Options(t *testing.T) {
	t.Parallel()

	all := sales.Slice(wide())

	require.Equal(t, []string{"A", "B", "C"}, filter.ProductTypes(all))
	require.Equal(t, []string{"X", "Y", "Z"}, filter.Brands(all, filter.Criteria{}))
	require.Equal(t, []string{"Gadget", "Widget"}, filter.Products(all, filter.Criteria{Type: "A"}))
	require.Equal(t, []string{"S1", "S3"}, filter.Stores(all, filter.Criteria{Type: "A", Brands: []string{"X"}}))
	require.Equal(t, []string{"Ana Silva"}, filter.Customers(all, filter.Criteria{Product: "Gizmo", Stores: []string{"S1"}}))
	require.Empty(t, filter.Brands(all, filter.Criteria{Type: "missing"}))
	require.NotNil(t, filter.Brands(all, filter.Criteria{Type: "missing"}))
}

func TestFilter_Options_IgnoreDownstreamSelections(t *testing.T) {
	t.Parallel()

	all := sales.Slice(wide())
	c := filter.Criteria{Type: "A", Brands: []string{"Y"}, Product: "Gadget", Stores: []string{"S2"}, Customer: "Bruno Costa"}

	require.Equal(t, []string{"X", "Y"}, filter.Brands(all, c))
	require.Equal(t, []string{"Gadget"}, filter.Products(all, c))
	require.Equal(t, filter.Options(all, filter.Criteria{Type: "A"}, filter.StageBrands), filter.Brands(all, c))
	require.Equal(t, filter.ProductTypes(all), filter.Options(all, c, filter.StageType))
}

func TestFilter_Options_Properties(t *testing.T) {
	t.Parallel()

	rows := wide()
	all := sales.Slice(rows)
	criteria := []filter.Criteria{
		{},
		{Type: "A"},
		{Type: "A", Brands: []string{"X"}},
		{Brands: []string{"X", "Z"}, Product: "Widget"},
		{Stores: []string{"S2"}},
	}
	for _, c := range criteria {
		for _, s := range filter.Stages() {
			opts := filter.Options(all, c, s)
			require.True(t, slices.IsSorted(opts), "%s %+v", s, c)
			require.Equal(t, len(opts), len(slices.Compact(slices.Clone(opts))), "duplicates in %s", s)
			require.NotContains(t, opts, "")
		}
	}

	// Every brand offered for a type has a row of that type.
	for _, typ := range filter.ProductTypes(all) {
		for _, brand := range filter.Brands(all, filter.Criteria{Type: typ}) {
			found := slices.ContainsFunc(rows, func(r sales.Row) bool { return r.ProductType == typ && r.Brand == brand })
			require.True(t, found, "brand %s offered for type %s", brand, typ)
		}
	}
}

func TestFilter_BlankSelectionsPassThrough(t *testing.T) {
	t.Parallel()

	rows := []sales.Row{
		{Brand: "X", StoreName: "S1", LineTotal: 1},
		{Brand: "", StoreName: "", LineTotal: 2},
	}
	all := sales.Slice(rows)

	for _, c := range []filter.Criteria{
		{Brands: []string{""}},
		{Stores: []string{""}},
		{Brands: []string{"", ""}, Stores: []string{""}},
	} {
		require.Equal(t, []float64{1, 2}, totals(filter.Apply(all, c)), "%+v", c)
	}
	require.Equal(t, []float64{1}, totals(filter.Apply(all, filter.Criteria{Brands: []string{"", "X"}})))

	c := filter.Criteria{Type: " A ", Brands: []string{" ", "X "}, Stores: []string{""}, Customer: "  "}.Normalize()
	require.Equal(t, filter.Criteria{Type: "A", Brands: []string{"X"}}, c)
	require.True(t, filter.Criteria{Brands: []string{" "}}.Normalize().IsZero())
}

func TestFilter_Criteria(t *testing.T) {
	t.Parallel()

	c := filter.Criteria{Type: "A", Brands: []string{"X"}, Product: "P", Stores: []string{"S"}, Customer: "C"}
	require.Equal(t, filter.Criteria{}, c.Upstream(filter.StageType))
	require.Equal(t, filter.Criteria{Type: "A", Brands: []string{"X"}}, c.Upstream(filter.StageProduct))
	require.Equal(t, filter.Criteria{Type: "A", Brands: []string{"X"}, Product: "P", Stores: []string{"S"}}, c.Upstream(filter.StageCustomer))
	require.True(t, filter.Criteria{}.IsZero())
	require.False(t, c.IsZero())
	require.Equal(t, "stores", filter.StageStores.String())
	for _, s := range filter.Stages() {
		got, ok := filter.ParseStage(s.String())
		require.True(t, ok)
		require.Equal(t, s, got)
	}
	_, ok := filter.ParseStage("region")
	require.False(t, ok)
}
