package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sgep-io/sgep/internal/expiry"
	"github.com/sgep-io/sgep/internal/platform/httpx"
)

// Service contains product and lote business rules.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// ListResult pairs decorated products with the listing total.
type ListResult struct {
	Produtos []ProdutoView
	Total    int
}

// List returns products decorated with derived expiration status.
func (s *Service) List(ctx context.Context, filters ListFilters) (ListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Skip < 0 {
		filters.Skip = 0
	}
	filters.Termo = strings.TrimSpace(filters.Termo)

	produtos, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return ListResult{}, err
	}
	now := s.now()
	views := make([]ProdutoView, 0, len(produtos))
	for _, p := range produtos {
		views = append(views, NewProdutoView(p, now))
	}
	return ListResult{Produtos: views, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, codigoLM int64) (ProdutoView, error) {
	p, err := s.repo.Get(ctx, codigoLM)
	if err != nil {
		return ProdutoView{}, err
	}
	return NewProdutoView(p, s.now()), nil
}

func (s *Service) Create(ctx context.Context, p Produto) (Produto, error) {
	if err := validateProduto(p); err != nil {
		return Produto{}, err
	}
	p.TotalEstoque = 0
	p.Lotes = []Lote{}
	return s.repo.Create(ctx, p)
}

// Update replaces product attributes. codigo_lm is immutable and lotes are
// managed through their own operations.
func (s *Service) Update(ctx context.Context, codigoLM int64, p Produto) (ProdutoView, error) {
	if err := validateProduto(p); err != nil {
		return ProdutoView{}, err
	}
	if err := s.repo.Update(ctx, codigoLM, p); err != nil {
		return ProdutoView{}, err
	}
	return s.Get(ctx, codigoLM)
}

func (s *Service) Delete(ctx context.Context, codigoLM int64) error {
	return s.repo.Delete(ctx, codigoLM)
}

// AddLote registers a new lote. The shelf-life span in months is derived
// server-side and the lote value is quantity times the product unit price.
func (s *Service) AddLote(ctx context.Context, codigoLM int64, l Lote) (ProdutoView, error) {
	p, err := s.repo.Get(ctx, codigoLM)
	if err != nil {
		return ProdutoView{}, err
	}
	if err := validateLote(l); err != nil {
		return ProdutoView{}, err
	}
	l.PrazoValidadeMeses = expiry.MonthSpan(l.DataFabricacao, l.DataValidade)
	l.ValorLote = round2(float64(l.QuantidadeLote) * p.PrecoUnit)
	if err := s.repo.InsertLote(ctx, codigoLM, l); err != nil {
		return ProdutoView{}, err
	}
	if err := s.recomputeStock(ctx, codigoLM); err != nil {
		return ProdutoView{}, err
	}
	return s.Get(ctx, codigoLM)
}

// UpdateLote edits a lote in place. The lote code is immutable after creation.
func (s *Service) UpdateLote(ctx context.Context, codigoLM int64, codigoLote string, l Lote) (ProdutoView, error) {
	p, err := s.repo.Get(ctx, codigoLM)
	if err != nil {
		return ProdutoView{}, err
	}
	if err := validateLote(l); err != nil {
		return ProdutoView{}, err
	}
	l.PrazoValidadeMeses = expiry.MonthSpan(l.DataFabricacao, l.DataValidade)
	l.ValorLote = round2(float64(l.QuantidadeLote) * p.PrecoUnit)
	if err := s.repo.UpdateLote(ctx, codigoLM, codigoLote, l); err != nil {
		return ProdutoView{}, err
	}
	if err := s.recomputeStock(ctx, codigoLM); err != nil {
		return ProdutoView{}, err
	}
	return s.Get(ctx, codigoLM)
}

// DeactivateLote soft-deletes a lote and adjusts the product stock. Lotes are
// never removed from the catalog: the row stays with ativo = false.
func (s *Service) DeactivateLote(ctx context.Context, codigoLM int64, codigoLote string) error {
	if _, err := s.repo.Get(ctx, codigoLM); err != nil {
		return err
	}
	if err := s.repo.SetLoteAtivo(ctx, codigoLM, codigoLote, false); err != nil {
		return err
	}
	return s.recomputeStock(ctx, codigoLM)
}

// SweepExpired deactivates every active lote whose expiry date is already in
// the past and recomputes the affected products' stock. Returns how many
// lotes were deactivated.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	refs, err := s.repo.ListExpiredActive(ctx, s.now())
	if err != nil {
		return 0, err
	}
	touched := make(map[int64]struct{})
	for _, ref := range refs {
		if err := s.repo.SetLoteAtivo(ctx, ref.CodigoLM, ref.CodigoLote, false); err != nil {
			return 0, err
		}
		touched[ref.CodigoLM] = struct{}{}
	}
	for codigoLM := range touched {
		if err := s.recomputeStock(ctx, codigoLM); err != nil {
			return 0, err
		}
	}
	return len(refs), nil
}

// recomputeStock sets total_estoque to the sum of active lote quantities.
func (s *Service) recomputeStock(ctx context.Context, codigoLM int64) error {
	p, err := s.repo.Get(ctx, codigoLM)
	if err != nil {
		return err
	}
	total := 0
	for _, l := range p.Lotes {
		if l.Ativo {
			total += l.QuantidadeLote
		}
	}
	return s.repo.SetTotalEstoque(ctx, codigoLM, total)
}

func validateProduto(p Produto) error {
	if p.CodigoLM <= 0 {
		return fmt.Errorf("codigo_lm deve ser positivo: %w", httpx.ErrValidation)
	}
	if strings.TrimSpace(p.NomeProduto) == "" {
		return fmt.Errorf("nome_produto obrigatorio: %w", httpx.ErrValidation)
	}
	if strings.TrimSpace(p.Marca) == "" {
		return fmt.Errorf("marca obrigatoria: %w", httpx.ErrValidation)
	}
	if p.PrecoUnit < 0 {
		return fmt.Errorf("preco_unit deve ser >= 0: %w", httpx.ErrValidation)
	}
	if len(p.FornecedorCNPJ) != 14 {
		return fmt.Errorf("fornecedor_cnpj deve ter 14 digitos: %w", httpx.ErrValidation)
	}
	return nil
}

func validateLote(l Lote) error {
	if strings.TrimSpace(l.CodigoLote) == "" {
		return fmt.Errorf("codigo_lote obrigatorio: %w", httpx.ErrValidation)
	}
	if l.QuantidadeLote <= 0 {
		return fmt.Errorf("quantidade_lote deve ser positiva: %w", httpx.ErrValidation)
	}
	if !expiry.ValidateDates(l.DataFabricacao, l.DataValidade) {
		return fmt.Errorf("data_validade deve ser posterior a data_fabricacao: %w", httpx.ErrValidation)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
