package catalog

import (
	"time"

	"github.com/sgep-io/sgep/internal/expiry"
)

// Produto is a perishable product tracked by the warehouse.
type Produto struct {
	CodigoLM          int64   `json:"codigo_lm"`
	NomeProduto       string  `json:"nome_produto"`
	Marca             string  `json:"marca"`
	EAN               *int64  `json:"ean,omitempty"`
	FichaTec          string  `json:"ficha_tec"`
	LinkProd          string  `json:"link_prod"`
	Cor               string  `json:"cor"`
	AVS               bool    `json:"avs"`
	PrecoUnit         float64 `json:"preco_unit"`
	EstoqueReportado  *int    `json:"estoque_reportado,omitempty"`
	TotalEstoque      int     `json:"total_estoque"`
	FornecedorCNPJ    string  `json:"fornecedor_cnpj"`
	FornecedorNome    string  `json:"fornecedor_nome"`
	Lotes             []Lote  `json:"lotes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lote is a dated, quantified sub-unit of a product's stock.
type Lote struct {
	CodigoLote         string    `json:"codigo_lote"`
	DataFabricacao     time.Time `json:"data_fabricacao"`
	DataValidade       time.Time `json:"data_validade"`
	PrazoValidadeMeses int       `json:"prazo_validade_meses"`
	QuantidadeLote     int       `json:"quantidade_lote"`
	Ativo              bool      `json:"ativo"`
	ValorLote          float64   `json:"valor_lote"`
	CreatedAt          time.Time `json:"created_at"`
}

// ProdutoView decorates a product with derived expiration status for listings.
type ProdutoView struct {
	Produto
	ProximaValidade *time.Time    `json:"proxima_validade,omitempty"`
	Status          expiry.Status `json:"status"`
}

// statusBatches projects lotes into the evaluator's batch view.
func statusBatches(lotes []Lote) []expiry.Batch {
	batches := make([]expiry.Batch, 0, len(lotes))
	for _, l := range lotes {
		batches = append(batches, expiry.Batch{ExpiresAt: l.DataValidade, Active: l.Ativo})
	}
	return batches
}

// NewProdutoView derives listing status against the supplied now.
func NewProdutoView(p Produto, now time.Time) ProdutoView {
	nearest := expiry.NearestActiveExpiry(statusBatches(p.Lotes))
	return ProdutoView{
		Produto:         p,
		ProximaValidade: nearest,
		Status:          expiry.Classify(nearest, now),
	}
}
