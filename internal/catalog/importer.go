package catalog

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

// ImportResult summarises a spreadsheet import run.
type ImportResult struct {
	ProdutosCriados     int `json:"produtos_criados"`
	ProdutosAtualizados int `json:"produtos_atualizados"`
	TotalProcessados    int `json:"total_processados"`
}

// Expected spreadsheet headers, matched case-insensitively on the first row.
const (
	colCodigoLM = "codigo_lm"
	colNome     = "nome_produto"
	colMarca    = "marca"
	colPreco    = "preco_unit"
	colEstoque  = "estoque_reportado"
	colCNPJ     = "fornecedor_cnpj"
)

// ImportSpreadsheet reads an .xlsx stream and upserts products row by row.
// Existing products (matched by codigo_lm) receive a partial update of the
// columns present; unknown codes become new products with partial data.
// Rows with an unparsable codigo_lm abort the whole import: a wrong file is
// better rejected than half-applied.
func (s *Service) ImportSpreadsheet(ctx context.Context, reader io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return ImportResult{}, fmt.Errorf("planilha invalida: %w", httpx.ErrValidation)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return ImportResult{}, fmt.Errorf("planilha sem abas: %w", httpx.ErrValidation)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return ImportResult{}, fmt.Errorf("leitura da planilha: %w", err)
	}
	if len(rows) < 2 {
		return ImportResult{}, fmt.Errorf("planilha sem linhas de dados: %w", httpx.ErrValidation)
	}

	columns := headerIndex(rows[0])
	if _, ok := columns[colCodigoLM]; !ok {
		return ImportResult{}, fmt.Errorf("coluna %s obrigatoria: %w", colCodigoLM, httpx.ErrValidation)
	}

	var result ImportResult
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		codigoLM, err := strconv.ParseInt(cell(row, columns, colCodigoLM), 10, 64)
		if err != nil || codigoLM <= 0 {
			return ImportResult{}, fmt.Errorf("linha %d: codigo_lm invalido: %w", i+2, httpx.ErrValidation)
		}

		nome := optionalString(cell(row, columns, colNome))
		marca := optionalString(cell(row, columns, colMarca))
		preco := optionalFloat(cell(row, columns, colPreco))
		estoque := optionalInt(cell(row, columns, colEstoque))

		exists, err := s.repo.Exists(ctx, codigoLM)
		if err != nil {
			return ImportResult{}, err
		}
		if exists {
			if err := s.repo.UpdatePartial(ctx, codigoLM, nome, marca, preco, estoque); err != nil {
				return ImportResult{}, err
			}
			result.ProdutosAtualizados++
		} else {
			p := Produto{
				CodigoLM:       codigoLM,
				NomeProduto:    valueOr(nome, fmt.Sprintf("Produto %d", codigoLM)),
				Marca:          valueOr(marca, "Importado"),
				FornecedorCNPJ: cell(row, columns, colCNPJ),
			}
			if preco != nil {
				p.PrecoUnit = *preco
			}
			p.EstoqueReportado = estoque
			if err := validateProduto(p); err != nil {
				return ImportResult{}, fmt.Errorf("linha %d: %w", i+2, err)
			}
			if _, err := s.repo.Create(ctx, p); err != nil {
				return ImportResult{}, fmt.Errorf("linha %d: %w", i+2, err)
			}
			result.ProdutosCriados++
		}
		result.TotalProcessados++
	}
	return result, nil
}

func headerIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return columns
}

func cell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func optionalFloat(v string) *float64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &f
}

func optionalInt(v string) *int {
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func valueOr(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}
