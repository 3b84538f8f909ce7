package suppliers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

type mockRepository struct {
	suppliers   map[string]Supplier
	productRefs map[string]int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		suppliers:   make(map[string]Supplier),
		productRefs: make(map[string]int),
	}
}

func (m *mockRepository) List(context.Context) ([]Supplier, error) {
	out := make([]Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockRepository) Get(_ context.Context, cnpj string) (Supplier, error) {
	s, ok := m.suppliers[cnpj]
	if !ok {
		return Supplier{}, httpx.ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) Create(_ context.Context, s Supplier) (Supplier, error) {
	if _, exists := m.suppliers[s.CNPJ]; exists {
		return Supplier{}, httpx.ErrDuplicate
	}
	m.suppliers[s.CNPJ] = s
	return s, nil
}

func (m *mockRepository) Update(_ context.Context, cnpj string, s Supplier) error {
	if _, ok := m.suppliers[cnpj]; !ok {
		return httpx.ErrNotFound
	}
	s.CNPJ = cnpj
	m.suppliers[cnpj] = s
	return nil
}

func (m *mockRepository) Delete(_ context.Context, cnpj string) error {
	if _, ok := m.suppliers[cnpj]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.suppliers, cnpj)
	return nil
}

func (m *mockRepository) CountProductRefs(_ context.Context, cnpj string) (int, error) {
	return m.productRefs[cnpj], nil
}

const validCNPJ = "12345678000190"

func TestCreateValidatesCNPJ(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), Supplier{CNPJ: "123", Nome: "ACME"})
	assert.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Create(context.Background(), Supplier{CNPJ: "1234567800019X", Nome: "ACME"})
	assert.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Create(context.Background(), Supplier{CNPJ: validCNPJ, Nome: "ACME", PoliticaDevolucao: 60, Ativo: true})
	require.NoError(t, err)
}

func TestCreateValidatesReturnPolicyWindow(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), Supplier{CNPJ: validCNPJ, Nome: "ACME", PoliticaDevolucao: 400})
	assert.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Create(context.Background(), Supplier{CNPJ: validCNPJ, Nome: "ACME", PoliticaDevolucao: -1})
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestDeleteGuardedByProductReferences(t *testing.T) {
	repo := newMockRepository()
	repo.suppliers[validCNPJ] = Supplier{CNPJ: validCNPJ, Nome: "ACME"}
	repo.productRefs[validCNPJ] = 3
	svc := NewService(repo)

	err := svc.Delete(context.Background(), validCNPJ)
	assert.True(t, errors.Is(err, httpx.ErrConflict))
	_, still := repo.suppliers[validCNPJ]
	assert.True(t, still)

	repo.productRefs[validCNPJ] = 0
	require.NoError(t, svc.Delete(context.Background(), validCNPJ))
}

func TestUpdateKeepsPathCNPJ(t *testing.T) {
	repo := newMockRepository()
	repo.suppliers[validCNPJ] = Supplier{CNPJ: validCNPJ, Nome: "ACME", Ativo: true}
	svc := NewService(repo)

	updated, err := svc.Update(context.Background(), validCNPJ, Supplier{
		CNPJ:              "99999999000199",
		Nome:              "ACME Renomeada",
		PoliticaDevolucao: 30,
		Ativo:             true,
	})
	require.NoError(t, err)
	assert.Equal(t, validCNPJ, updated.CNPJ)
	assert.Equal(t, "ACME Renomeada", updated.Nome)
}
