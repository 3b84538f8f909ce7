package suppliers

import (
	"context"
	"fmt"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

// Service contains fornecedor business rules.
type Service struct {
	repo Repository
}

// NewService builds a supplier service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Supplier, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, cnpj string) (Supplier, error) {
	if err := validateCNPJ(cnpj); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, cnpj)
}

func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	if err := validate(supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, supplier)
}

// Update replaces supplier attributes. The CNPJ is immutable: the path key
// wins over any CNPJ present in the payload.
func (s *Service) Update(ctx context.Context, cnpj string, supplier Supplier) (Supplier, error) {
	if err := validateCNPJ(cnpj); err != nil {
		return Supplier{}, err
	}
	supplier.CNPJ = cnpj
	if err := validate(supplier); err != nil {
		return Supplier{}, err
	}
	if err := s.repo.Update(ctx, cnpj, supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, cnpj)
}

// Delete removes a supplier unless any product still references it. The
// database FK enforces the same rule; checking here yields a clear message
// before touching the row.
func (s *Service) Delete(ctx context.Context, cnpj string) error {
	if err := validateCNPJ(cnpj); err != nil {
		return err
	}
	refs, err := s.repo.CountProductRefs(ctx, cnpj)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("fornecedor %s referenciado por %d produto(s): %w", cnpj, refs, httpx.ErrConflict)
	}
	return s.repo.Delete(ctx, cnpj)
}

func validate(supplier Supplier) error {
	if err := validateCNPJ(supplier.CNPJ); err != nil {
		return err
	}
	if supplier.Nome == "" {
		return fmt.Errorf("nome obrigatorio: %w", httpx.ErrValidation)
	}
	if supplier.PoliticaDevolucao < 0 || supplier.PoliticaDevolucao > 365 {
		return fmt.Errorf("politica de devolucao deve estar entre 0 e 365 dias: %w", httpx.ErrValidation)
	}
	return nil
}

func validateCNPJ(cnpj string) error {
	if len(cnpj) != 14 {
		return fmt.Errorf("cnpj deve ter 14 digitos: %w", httpx.ErrValidation)
	}
	for _, c := range cnpj {
		if c < '0' || c > '9' {
			return fmt.Errorf("cnpj deve conter apenas digitos: %w", httpx.ErrValidation)
		}
	}
	return nil
}
