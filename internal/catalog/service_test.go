package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

type mockRepository struct {
	produtos map[int64]Produto
}

func newMockRepository() *mockRepository {
	return &mockRepository{produtos: make(map[int64]Produto)}
}

func (m *mockRepository) List(_ context.Context, _ ListFilters) ([]Produto, int, error) {
	out := make([]Produto, 0, len(m.produtos))
	for _, p := range m.produtos {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepository) Get(_ context.Context, codigoLM int64) (Produto, error) {
	p, ok := m.produtos[codigoLM]
	if !ok {
		return Produto{}, fmt.Errorf("produto %d: %w", codigoLM, httpx.ErrNotFound)
	}
	return p, nil
}

func (m *mockRepository) Exists(_ context.Context, codigoLM int64) (bool, error) {
	_, ok := m.produtos[codigoLM]
	return ok, nil
}

func (m *mockRepository) Create(_ context.Context, p Produto) (Produto, error) {
	if _, exists := m.produtos[p.CodigoLM]; exists {
		return Produto{}, httpx.ErrDuplicate
	}
	if p.Lotes == nil {
		p.Lotes = []Lote{}
	}
	m.produtos[p.CodigoLM] = p
	return p, nil
}

func (m *mockRepository) Update(_ context.Context, codigoLM int64, p Produto) error {
	current, ok := m.produtos[codigoLM]
	if !ok {
		return httpx.ErrNotFound
	}
	p.CodigoLM = codigoLM
	p.Lotes = current.Lotes
	p.TotalEstoque = current.TotalEstoque
	m.produtos[codigoLM] = p
	return nil
}

func (m *mockRepository) UpdatePartial(_ context.Context, codigoLM int64, nome, marca *string, preco *float64, estoqueReportado *int) error {
	p, ok := m.produtos[codigoLM]
	if !ok {
		return httpx.ErrNotFound
	}
	if nome != nil {
		p.NomeProduto = *nome
	}
	if marca != nil {
		p.Marca = *marca
	}
	if preco != nil {
		p.PrecoUnit = *preco
	}
	if estoqueReportado != nil {
		p.EstoqueReportado = estoqueReportado
	}
	m.produtos[codigoLM] = p
	return nil
}

func (m *mockRepository) Delete(_ context.Context, codigoLM int64) error {
	if _, ok := m.produtos[codigoLM]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.produtos, codigoLM)
	return nil
}

func (m *mockRepository) InsertLote(_ context.Context, codigoLM int64, l Lote) error {
	p, ok := m.produtos[codigoLM]
	if !ok {
		return httpx.ErrNotFound
	}
	for _, existing := range p.Lotes {
		if existing.CodigoLote == l.CodigoLote {
			return httpx.ErrDuplicate
		}
	}
	p.Lotes = append(p.Lotes, l)
	m.produtos[codigoLM] = p
	return nil
}

func (m *mockRepository) UpdateLote(_ context.Context, codigoLM int64, codigoLote string, l Lote) error {
	p, ok := m.produtos[codigoLM]
	if !ok {
		return httpx.ErrNotFound
	}
	for i, existing := range p.Lotes {
		if existing.CodigoLote == codigoLote {
			l.CodigoLote = codigoLote
			p.Lotes[i] = l
			m.produtos[codigoLM] = p
			return nil
		}
	}
	return httpx.ErrNotFound
}

func (m *mockRepository) SetLoteAtivo(_ context.Context, codigoLM int64, codigoLote string, ativo bool) error {
	p, ok := m.produtos[codigoLM]
	if !ok {
		return httpx.ErrNotFound
	}
	for i := range p.Lotes {
		if p.Lotes[i].CodigoLote == codigoLote {
			p.Lotes[i].Ativo = ativo
			m.produtos[codigoLM] = p
			return nil
		}
	}
	return httpx.ErrNotFound
}

func (m *mockRepository) SetTotalEstoque(_ context.Context, codigoLM int64, total int) error {
	p, ok := m.produtos[codigoLM]
	if !ok {
		return httpx.ErrNotFound
	}
	p.TotalEstoque = total
	m.produtos[codigoLM] = p
	return nil
}

func (m *mockRepository) ListExpiredActive(_ context.Context, asOf time.Time) ([]LoteRef, error) {
	var refs []LoteRef
	for _, p := range m.produtos {
		for _, l := range p.Lotes {
			if l.Ativo && l.DataValidade.Before(asOf) {
				refs = append(refs, LoteRef{CodigoLM: p.CodigoLM, CodigoLote: l.CodigoLote})
			}
		}
	}
	return refs, nil
}

func (m *mockRepository) AllWithLotes(_ context.Context) ([]Produto, error) {
	out := make([]Produto, 0, len(m.produtos))
	for _, p := range m.produtos {
		out = append(out, p)
	}
	return out, nil
}

func newTestService(repo Repository, now time.Time) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return now }
	return svc
}

func validProduto(codigoLM int64) Produto {
	return Produto{
		CodigoLM:       codigoLM,
		NomeProduto:    "Selante Acrilico",
		Marca:          "VedaTudo",
		PrecoUnit:      25.90,
		FornecedorCNPJ: "12345678000190",
	}
}

func TestCreateProdutoStartsWithoutStock(t *testing.T) {
	svc := newTestService(newMockRepository(), time.Now())

	p := validProduto(88001)
	p.TotalEstoque = 50

	created, err := svc.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, created.TotalEstoque)
	assert.Empty(t, created.Lotes)
}

func TestCreateProdutoValidation(t *testing.T) {
	svc := newTestService(newMockRepository(), time.Now())

	cases := []Produto{
		{CodigoLM: 0, NomeProduto: "X", Marca: "Y", FornecedorCNPJ: "12345678000190"},
		{CodigoLM: 1, NomeProduto: "", Marca: "Y", FornecedorCNPJ: "12345678000190"},
		{CodigoLM: 1, NomeProduto: "X", Marca: "Y", PrecoUnit: -1, FornecedorCNPJ: "12345678000190"},
		{CodigoLM: 1, NomeProduto: "X", Marca: "Y", FornecedorCNPJ: "123"},
	}
	for _, p := range cases {
		_, err := svc.Create(context.Background(), p)
		assert.True(t, errors.Is(err, httpx.ErrValidation), "produto %+v", p)
	}
}

func TestAddLoteDerivesSpanValueAndStock(t *testing.T) {
	repo := newMockRepository()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	_, err := svc.Create(context.Background(), validProduto(88002))
	require.NoError(t, err)

	view, err := svc.AddLote(context.Background(), 88002, Lote{
		CodigoLote:     "L-001",
		DataFabricacao: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		DataValidade:   time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
		QuantidadeLote: 10,
		Ativo:          true,
	})
	require.NoError(t, err)
	require.Len(t, view.Lotes, 1)

	lote := view.Lotes[0]
	assert.Equal(t, 5, lote.PrazoValidadeMeses)
	assert.InDelta(t, 259.0, lote.ValorLote, 0.001)
	assert.Equal(t, 10, view.TotalEstoque)
	require.NotNil(t, view.ProximaValidade)
	assert.Equal(t, lote.DataValidade, *view.ProximaValidade)
}

func TestAddLoteRejectsInvertedDates(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, time.Now())

	_, err := svc.Create(context.Background(), validProduto(88003))
	require.NoError(t, err)

	_, err = svc.AddLote(context.Background(), 88003, Lote{
		CodigoLote:     "L-001",
		DataFabricacao: time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
		DataValidade:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		QuantidadeLote: 5,
		Ativo:          true,
	})
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestDeactivateLoteAdjustsStock(t *testing.T) {
	repo := newMockRepository()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	_, err := svc.Create(context.Background(), validProduto(88004))
	require.NoError(t, err)

	for i, qty := range []int{10, 7} {
		_, err := svc.AddLote(context.Background(), 88004, Lote{
			CodigoLote:     fmt.Sprintf("L-%03d", i+1),
			DataFabricacao: now.AddDate(0, -1, 0),
			DataValidade:   now.AddDate(0, 6, 0),
			QuantidadeLote: qty,
			Ativo:          true,
		})
		require.NoError(t, err)
	}

	view, err := svc.Get(context.Background(), 88004)
	require.NoError(t, err)
	assert.Equal(t, 17, view.TotalEstoque)

	require.NoError(t, svc.DeactivateLote(context.Background(), 88004, "L-001"))

	view, err = svc.Get(context.Background(), 88004)
	require.NoError(t, err)
	assert.Equal(t, 7, view.TotalEstoque)
	assert.Len(t, view.Lotes, 2, "lote desativado permanece no historico")
}

func TestUpdateKeepsCodigoLM(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, time.Now())

	_, err := svc.Create(context.Background(), validProduto(88005))
	require.NoError(t, err)

	renamed := validProduto(99999)
	renamed.NomeProduto = "Selante Renomeado"
	view, err := svc.Update(context.Background(), 88005, renamed)
	require.NoError(t, err)
	assert.Equal(t, int64(88005), view.CodigoLM)
	assert.Equal(t, "Selante Renomeado", view.NomeProduto)
}

func TestSweepExpiredDeactivatesAndRecounts(t *testing.T) {
	repo := newMockRepository()
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	_, err := svc.Create(context.Background(), validProduto(88006))
	require.NoError(t, err)

	_, err = svc.AddLote(context.Background(), 88006, Lote{
		CodigoLote:     "VENCIDO",
		DataFabricacao: now.AddDate(-1, 0, 0),
		DataValidade:   now.AddDate(0, 0, -3),
		QuantidadeLote: 8,
		Ativo:          true,
	})
	require.NoError(t, err)
	_, err = svc.AddLote(context.Background(), 88006, Lote{
		CodigoLote:     "VALIDO",
		DataFabricacao: now.AddDate(0, -1, 0),
		DataValidade:   now.AddDate(0, 4, 0),
		QuantidadeLote: 5,
		Ativo:          true,
	})
	require.NoError(t, err)

	count, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	view, err := svc.Get(context.Background(), 88006)
	require.NoError(t, err)
	assert.Equal(t, 5, view.TotalEstoque)
	for _, l := range view.Lotes {
		if l.CodigoLote == "VENCIDO" {
			assert.False(t, l.Ativo)
		}
	}
}
