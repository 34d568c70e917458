package sheet_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/salesdash/ingest/pkg/schema"
	"github.com/malbeclabs/salesdash/ingest/pkg/sheet"
	"github.com/malbeclabs/salesdash/ingest/pkg/source"
	"github.com/malbeclabs/salesdash/ingest/pkg/table"
	salestesting "github.com/malbeclabs/salesdash/utils/pkg/testing"
)

func TestSheet_Decode_CSV(t *testing.T) {
	t.Parallel()

	data := "\xef\xbb\xbfRelatório\nGerado em 2022\nID Loja ,Nome da Loja\n1,Centro\n,\n2,Norte,extra\n"
	tb, err := sheet.Decode("lojas.csv", strings.NewReader(data), schema.Source{SkipRows: 2})
	require.NoError(t, err)

	require.Equal(t, []string{"ID Loja ", "Nome da Loja", "Unnamed: 2"}, tb.Columns)
	require.Equal(t, 2, tb.Len(), "blank rows are dropped")
	require.Equal(t, table.KindNumber, tb.Get(0, "ID Loja ").Kind())
	require.Equal(t, "Norte", tb.Get(1, "Nome da Loja").String())
	require.True(t, tb.Get(0, "Unnamed: 2").IsNull())
}

func TestSheet_Decode_Errors(t *testing.T) {
	t.Parallel()

	t.Run("header beyond data", func(t *testing.T) {
		t.Parallel()
		_, err := sheet.Decode("a.csv", strings.NewReader("a,b\n"), schema.Source{SkipRows: 3})
		require.ErrorIs(t, err, sheet.ErrParse)
	})

	t.Run("blank header", func(t *testing.T) {
		t.Parallel()
		_, err := sheet.Decode("a.csv", strings.NewReader(",,\n1,2,3\n"), schema.Source{})
		require.ErrorIs(t, err, sheet.ErrParse)
	})

	t.Run("not a workbook", func(t *testing.T) {
		t.Parallel()
		_, err := sheet.Decode("a.xlsx", strings.NewReader("definitely not a zip"), schema.Source{})
		require.ErrorIs(t, err, sheet.ErrParse)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "a.xlsx")
		salestesting.WriteXLSX(t, path, [][]any{{"a"}, {1}})
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		_, err = sheet.Decode("a.xlsx", f, schema.Source{Sheet: "Vendas"})
		require.ErrorIs(t, err, sheet.ErrParse)
	})
}

func TestSheet_Decode_XLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clientes.xlsx")
	salestesting.WriteXLSX(t, path, [][]any{
		{"Cadastro de Clientes"},
		{"Atualizado mensalmente"},
		{"ID Cliente", "Primeiro Nome", "Sobrenome"},
		{1, "Ana", "Silva"},
		{2, "Bruno", nil},
	})
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	tb, err := sheet.Decode("clientes.xlsx", f, schema.Source{SkipRows: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"ID Cliente", "Primeiro Nome", "Sobrenome"}, tb.Columns)
	require.Equal(t, 2, tb.Len())
	require.Equal(t, "1", tb.Get(0, "ID Cliente").String())
	require.Equal(t, "Ana", tb.Get(0, "Primeiro Nome").String())
	require.True(t, tb.Get(1, "Sobrenome").IsNull())
}

func TestSheet_LoadAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	salestesting.WriteFixture(t, dir, salestesting.Scenario())

	loader, err := sheet.NewLoader(sheet.LoaderConfig{
		Logger: salestesting.NewLogger(),
		Source: source.NewDir(dir),
		Schema: schema.Default(),
	})
	require.NoError(t, err)

	wb, err := loader.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, wb.Sales, 3)
	for i, year := range []int{2020, 2021, 2022} {
		require.Equal(t, year, wb.Sales[i].Year)
		require.Equal(t, 1, wb.Sales[i].Table.Len())
	}
	require.Equal(t, 2, wb.Customers.Len())
	require.Equal(t, []string{"ID Cliente", "Primeiro Nome", "Sobrenome"}, wb.Customers.Columns)
	require.Equal(t, 2, wb.Stores.Len())
	require.Equal(t, 3, wb.Products.Len())
	require.Equal(t, "sales=3 customers=2 stores=2 products=3", wb.String())
}

func TestSheet_LoadAll_MissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	salestesting.WriteFixture(t, dir, salestesting.Scenario())
	require.NoError(t, os.Remove(filepath.Join(dir, "Cadastro Lojas.xlsx")))

	loader, err := sheet.NewLoader(sheet.LoaderConfig{
		Logger: salestesting.NewLogger(),
		Source: source.NewDir(dir),
		Schema: schema.Default(),
	})
	require.NoError(t, err)

	_, err = loader.LoadAll(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, sheet.ErrNotFound)

	var loadErr *sheet.LoadError
	require.True(t, errors.As(err, &loadErr))
	require.Equal(t, "Cadastro Lojas.xlsx", loadErr.File)
}

func TestSheet_NewLoader_Validate(t *testing.T) {
	t.Parallel()

	_, err := sheet.NewLoader(sheet.LoaderConfig{Source: source.NewDir("."), Schema: schema.Default()})
	require.ErrorContains(t, err, "logger is required")

	_, err = sheet.NewLoader(sheet.LoaderConfig{Logger: salestesting.NewLogger(), Schema: schema.Default()})
	require.ErrorContains(t, err, "source is required")
}
