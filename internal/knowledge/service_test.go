package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

type mockRepository struct {
	items map[string]Item
}

func newMockRepository() *mockRepository {
	return &mockRepository{items: make(map[string]Item)}
}

func (m *mockRepository) List(_ context.Context, onlyActive bool) ([]Item, error) {
	out := []Item{}
	for _, item := range m.items {
		if onlyActive && !item.Ativo {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *mockRepository) Get(_ context.Context, id string) (Item, error) {
	item, ok := m.items[id]
	if !ok {
		return Item{}, httpx.ErrNotFound
	}
	return item, nil
}

func (m *mockRepository) Create(_ context.Context, item Item) (Item, error) {
	for _, existing := range m.items {
		if existing.Titulo == item.Titulo {
			return Item{}, httpx.ErrDuplicate
		}
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *mockRepository) Update(_ context.Context, id string, item Item) error {
	if _, ok := m.items[id]; !ok {
		return httpx.ErrNotFound
	}
	item.ID = id
	m.items[id] = item
	return nil
}

func (m *mockRepository) Deactivate(_ context.Context, id string) error {
	item, ok := m.items[id]
	if !ok {
		return httpx.ErrNotFound
	}
	item.Ativo = false
	m.items[id] = item
	return nil
}

func (m *mockRepository) IncrementVisualizacoes(_ context.Context, id string) error {
	item, ok := m.items[id]
	if !ok {
		return httpx.ErrNotFound
	}
	item.Visualizacoes++
	m.items[id] = item
	return nil
}

func seedItems(repo *mockRepository) {
	repo.items["a"] = Item{
		ID:       "a",
		Titulo:   "Como cadastrar um fornecedor",
		Resposta: "Acesse a tela de fornecedores e informe o CNPJ.",
		Keywords: []string{"fornecedor", "cnpj", "cadastro"},
		Ativo:    true,
	}
	repo.items["b"] = Item{
		ID:       "b",
		Titulo:   "Como registrar um lote",
		Resposta: "Abra o produto e adicione o lote com as datas.",
		Keywords: []string{"lote", "validade"},
		Ativo:    true,
	}
	repo.items["c"] = Item{
		ID:       "c",
		Titulo:   "Pergunta desativada sobre fornecedor",
		Resposta: "Nao deve aparecer.",
		Keywords: []string{"fornecedor"},
		Ativo:    false,
	}
}

func TestCreateRequiresKeywords(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), Item{Titulo: "T", Resposta: "R"})
	assert.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Create(context.Background(), Item{Titulo: "T", Resposta: "R", Keywords: []string{" "}})
	assert.True(t, errors.Is(err, httpx.ErrValidation))

	created, err := svc.Create(context.Background(), Item{Titulo: "T", Resposta: "R", Keywords: []string{"ok"}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Ativo)
}

func TestBuscarValidatesBounds(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Buscar(context.Background(), SearchParams{Mensagem: "oi", MinScore: 30, MaxResultados: 3})
	assert.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Buscar(context.Background(), SearchParams{Mensagem: "como cadastrar", MinScore: 120, MaxResultados: 3})
	assert.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Buscar(context.Background(), SearchParams{Mensagem: "como cadastrar", MinScore: 30, MaxResultados: 0})
	assert.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Buscar(context.Background(), SearchParams{Mensagem: "como cadastrar", MinScore: 30, MaxResultados: 11})
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestBuscarIgnoresInactiveAndSortsByScore(t *testing.T) {
	repo := newMockRepository()
	seedItems(repo)
	svc := NewService(repo)

	matches, err := svc.Buscar(context.Background(), SearchParams{
		Mensagem:      "como cadastrar fornecedor",
		MinScore:      DefaultMinScore,
		MaxResultados: DefaultMaxResultados,
	})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "a", matches[0].ID)
	for _, m := range matches {
		assert.NotEqual(t, "c", m.ID, "item desativado nao entra na busca")
		assert.GreaterOrEqual(t, m.Score, DefaultMinScore)
	}
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestBuscarNoMatchesReturnsEmpty(t *testing.T) {
	repo := newMockRepository()
	seedItems(repo)
	svc := NewService(repo)

	matches, err := svc.Buscar(context.Background(), SearchParams{
		Mensagem:      "assunto completamente desconhecido xyz",
		MinScore:      DefaultMinScore,
		MaxResultados: DefaultMaxResultados,
	})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMelhorRespostaCountsView(t *testing.T) {
	repo := newMockRepository()
	seedItems(repo)
	svc := NewService(repo)

	best, err := svc.MelhorResposta(context.Background(), "como cadastrar fornecedor")
	require.NoError(t, err)
	assert.Equal(t, "a", best.ID)
	assert.Equal(t, 1, best.Visualizacoes)
	assert.Equal(t, 1, repo.items["a"].Visualizacoes)
}

func TestMelhorRespostaNotFound(t *testing.T) {
	repo := newMockRepository()
	seedItems(repo)
	svc := NewService(repo)

	_, err := svc.MelhorResposta(context.Background(), "assunto completamente desconhecido xyz")
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}
