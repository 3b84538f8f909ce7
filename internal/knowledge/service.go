package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

// Search defaults and bounds for the chat lookup.
const (
	DefaultMinScore      = 30.0
	DefaultMaxResultados = 3
	MinMensagemLen       = 3
	MaxResultadosLimit   = 10
)

// SearchParams tunes a chat lookup.
type SearchParams struct {
	Mensagem      string
	MinScore      float64
	MaxResultados int
}

// Service contains FAQ business rules.
type Service struct {
	repo Repository
}

// NewService builds a knowledge service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, onlyActive bool) ([]Item, error) {
	return s.repo.List(ctx, onlyActive)
}

func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, item Item) (Item, error) {
	if err := validateItem(item); err != nil {
		return Item{}, err
	}
	item.ID = uuid.NewString()
	item.Ativo = true
	return s.repo.Create(ctx, item)
}

func (s *Service) Update(ctx context.Context, id string, item Item) (Item, error) {
	if err := validateItem(item); err != nil {
		return Item{}, err
	}
	if err := s.repo.Update(ctx, id, item); err != nil {
		return Item{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.repo.Deactivate(ctx, id)
}

// Buscar scores every active item against the message and returns the top
// matches above the minimum score, best first.
func (s *Service) Buscar(ctx context.Context, params SearchParams) ([]Match, error) {
	if len(strings.TrimSpace(params.Mensagem)) < MinMensagemLen {
		return nil, fmt.Errorf("mensagem deve ter ao menos %d caracteres: %w", MinMensagemLen, httpx.ErrValidation)
	}
	if params.MinScore < 0 || params.MinScore > 100 {
		return nil, fmt.Errorf("min_score deve estar entre 0 e 100: %w", httpx.ErrValidation)
	}
	if params.MaxResultados < 1 || params.MaxResultados > MaxResultadosLimit {
		return nil, fmt.Errorf("max_resultados deve estar entre 1 e %d: %w", MaxResultadosLimit, httpx.ErrValidation)
	}

	items, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}

	words := queryWords(params.Mensagem)
	matches := []Match{}
	for _, item := range items {
		score := scoreItem(item, words)
		if score >= params.MinScore {
			matches = append(matches, Match{Item: item, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > params.MaxResultados {
		matches = matches[:params.MaxResultados]
	}
	return matches, nil
}

// MelhorResposta returns the single best match for a message and counts the
// view. Not found when nothing clears the minimum score.
func (s *Service) MelhorResposta(ctx context.Context, mensagem string) (Match, error) {
	matches, err := s.Buscar(ctx, SearchParams{
		Mensagem:      mensagem,
		MinScore:      DefaultMinScore,
		MaxResultados: 1,
	})
	if err != nil {
		return Match{}, err
	}
	if len(matches) == 0 {
		return Match{}, fmt.Errorf("nenhuma resposta encontrada: %w", httpx.ErrNotFound)
	}
	best := matches[0]
	if err := s.repo.IncrementVisualizacoes(ctx, best.ID); err != nil {
		return Match{}, err
	}
	best.Visualizacoes++
	return best, nil
}

func validateItem(item Item) error {
	if strings.TrimSpace(item.Titulo) == "" {
		return fmt.Errorf("titulo obrigatorio: %w", httpx.ErrValidation)
	}
	if strings.TrimSpace(item.Resposta) == "" {
		return fmt.Errorf("resposta obrigatoria: %w", httpx.ErrValidation)
	}
	if len(item.Keywords) == 0 {
		return fmt.Errorf("ao menos uma keyword e obrigatoria: %w", httpx.ErrValidation)
	}
	for _, k := range item.Keywords {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("keywords nao podem ser vazias: %w", httpx.ErrValidation)
		}
	}
	return nil
}
