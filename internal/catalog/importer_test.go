package catalog

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestImportSpreadsheetCreatesAndUpdates(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, time.Now())

	existing := validProduto(1001)
	existing.NomeProduto = "Nome Antigo"
	_, err := svc.Create(context.Background(), existing)
	require.NoError(t, err)

	buf := buildSheet(t, [][]interface{}{
		{"codigo_lm", "nome_produto", "marca", "preco_unit", "estoque_reportado", "fornecedor_cnpj"},
		{1001, "Nome Novo", "VedaTudo", 30.5, 12, "12345678000190"},
		{2002, "Produto Importado", "Marca X", "19,90", 4, "12345678000190"},
	})

	result, err := svc.ImportSpreadsheet(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProdutosCriados)
	assert.Equal(t, 1, result.ProdutosAtualizados)
	assert.Equal(t, 2, result.TotalProcessados)

	updated, err := repo.Get(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, "Nome Novo", updated.NomeProduto)
	assert.InDelta(t, 30.5, updated.PrecoUnit, 0.001)
	require.NotNil(t, updated.EstoqueReportado)
	assert.Equal(t, 12, *updated.EstoqueReportado)

	created, err := repo.Get(context.Background(), 2002)
	require.NoError(t, err)
	assert.Equal(t, "Produto Importado", created.NomeProduto)
	assert.InDelta(t, 19.90, created.PrecoUnit, 0.001)
}

func TestImportSpreadsheetFillsMissingFields(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, time.Now())

	buf := buildSheet(t, [][]interface{}{
		{"codigo_lm", "fornecedor_cnpj"},
		{3003, "12345678000190"},
	})

	result, err := svc.ImportSpreadsheet(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProdutosCriados)

	p, err := repo.Get(context.Background(), 3003)
	require.NoError(t, err)
	assert.Equal(t, "Produto 3003", p.NomeProduto)
	assert.Equal(t, "Importado", p.Marca)
}

func TestImportSpreadsheetRejectsBadCodigoLM(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, time.Now())

	buf := buildSheet(t, [][]interface{}{
		{"codigo_lm", "nome_produto", "fornecedor_cnpj"},
		{1001, "Valido", "12345678000190"},
		{"abc", "Invalido", "12345678000190"},
	})

	_, err := svc.ImportSpreadsheet(context.Background(), buf)
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestImportSpreadsheetRequiresCodigoLMColumn(t *testing.T) {
	svc := newTestService(newMockRepository(), time.Now())

	buf := buildSheet(t, [][]interface{}{
		{"nome_produto", "marca"},
		{"Sem Codigo", "Marca"},
	})

	_, err := svc.ImportSpreadsheet(context.Background(), buf)
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestImportSpreadsheetRejectsNonSpreadsheet(t *testing.T) {
	svc := newTestService(newMockRepository(), time.Now())

	_, err := svc.ImportSpreadsheet(context.Background(), bytes.NewBufferString("not a spreadsheet"))
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}
