// Package salestesting writes sales workbooks for tests.
package salestesting

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type Sale struct {
	Order      string
	Date       time.Time
	CustomerID int
	StoreID    int
	SKU        string
	Quantity   float64
	UnitPrice  float64
}

type Customer struct {
	ID    int
	First string
	Last  string
}

type Store struct {
	ID   int
	Name string
	City string
}

type Product struct {
	SKU   string
	Name  string
	Brand string
	Type  string
}

// Fixture is a complete set of inputs using the default workbook layout.
type Fixture struct {
	Sales     map[int][]Sale
	Customers []Customer
	Stores    []Store
	Products  []Product
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Scenario is the three-sale dataset:
//
//	type A, brand X, store S1, 10
//	type A, brand Y, store S2, 20
//	type B, brand X, store S1, 5
func Scenario() Fixture {
	return Fixture{
		Sales: map[int][]Sale{
			2020: {{Order: "V-1", Date: day(2020, time.March, 2), CustomerID: 1, StoreID: 1, SKU: "P1", Quantity: 1, UnitPrice: 10}},
			2021: {{Order: "V-2", Date: day(2021, time.June, 15), CustomerID: 2, StoreID: 2, SKU: "P2", Quantity: 2, UnitPrice: 10}},
			2022: {{Order: "V-3", Date: day(2022, time.January, 9), CustomerID: 1, StoreID: 1, SKU: "P3", Quantity: 1, UnitPrice: 5}},
		},
		Customers: []Customer{
			{ID: 1, First: "Ana", Last: "Silva"},
			{ID: 2, First: "Bruno", Last: "Costa"},
		},
		Stores: []Store{
			{ID: 1, Name: "S1", City: "Rio"},
			{ID: 2, Name: "S2", City: "Recife"},
		},
		Products: []Product{
			{SKU: "P1", Name: "Widget", Brand: "X", Type: "A"},
			{SKU: "P2", Name: "Gadget", Brand: "Y", Type: "A"},
			{SKU: "P3", Name: "Gizmo", Brand: "X", Type: "B"},
		},
	}
}

// WriteFixture writes the six workbooks of fx into dir using the default
// file names and headers. Sales headers carry stray whitespace and the
// customer registry has two rows above its header, as in the real files.
func WriteFixture(t testing.TB, dir string, fx Fixture) {
	t.Helper()

	for _, year := range []int{2020, 2021, 2022} {
		rows := [][]any{{"Ordem de Compra", " Data da Venda", "ID Cliente ", "ID Loja", "SKU", "Qtd Vendida", "Preço Unitario "}}
		for _, s := range fx.Sales[year] {
			rows = append(rows, []any{s.Order, s.Date, s.CustomerID, s.StoreID, s.SKU, s.Quantity, s.UnitPrice})
		}
		WriteXLSX(t, filepath.Join(dir, "Base Vendas - "+strconv.Itoa(year)+".xlsx"), rows)
	}

	customers := [][]any{{"Cadastro de Clientes"}, {"Atualizado mensalmente"}, {"ID Cliente", "Primeiro Nome", "Sobrenome"}}
	for _, c := range fx.Customers {
		customers = append(customers, []any{c.ID, c.First, c.Last})
	}
	WriteXLSX(t, filepath.Join(dir, "Cadastro Clientes.xlsx"), customers)

	stores := [][]any{{"ID Loja", "Nome da Loja", "Cidade"}}
	for _, s := range fx.Stores {
		stores = append(stores, []any{s.ID, s.Name, s.City})
	}
	WriteXLSX(t, filepath.Join(dir, "Cadastro Lojas.xlsx"), stores)

	products := [][]any{{"SKU", "Produto", "Marca", "Tipo do Produto"}}
	for _, p := range fx.Products {
		products = append(products, []any{p.SKU, p.Name, p.Brand, p.Type})
	}
	WriteXLSX(t, filepath.Join(dir, "Cadastro Produtos.xlsx"), products)
}

// WriteXLSX writes rows into the first sheet of a new workbook at path.
func WriteXLSX(t testing.TB, path string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}
