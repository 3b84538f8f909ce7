// Package kbclient is the HTTP client for the knowledge base chat lookup.
// Lookup calls fall in two classes: BestAnswer fails loud so callers can
// distinguish "no answer" from "service broken", while SearchAnswers fails
// open because suggestion lists are decorative and must never break the chat.
package kbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Answer is one knowledge base entry as returned by the lookup endpoints.
type Answer struct {
	ID            string  `json:"id"`
	Titulo        string  `json:"titulo"`
	Resposta      string  `json:"resposta"`
	Categoria     string  `json:"categoria"`
	Visualizacoes int     `json:"visualizacoes"`
	Score         float64 `json:"score,omitempty"`
}

// Client talks to a running knowledge base over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BestAnswer returns the single best match for a message, or nil when the
// knowledge base has no answer. Transport and server errors propagate.
func (c *Client) BestAnswer(ctx context.Context, mensagem string) (*Answer, error) {
	endpoint := c.baseURL + "/base-conhecimento/resposta/melhor?mensagem=" + url.QueryEscape(mensagem)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("consulta de melhor resposta: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("consulta de melhor resposta: status %d", resp.StatusCode)
	}

	var answer Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("consulta de melhor resposta: %w", err)
	}
	return &answer, nil
}

type searchRequest struct {
	Mensagem      string   `json:"mensagem"`
	MinScore      *float64 `json:"min_score,omitempty"`
	MaxResultados int      `json:"max_resultados"`
}

type searchResponse struct {
	Resultados []Answer `json:"resultados"`
}

// SearchAnswers returns up to max suggestions scoring at least minScore for a
// message. A negative minScore defers to the server default; zero is sent as
// an explicit "no floor". Any failure, transport, server or decode, degrades
// to an empty slice.
func (c *Client) SearchAnswers(ctx context.Context, mensagem string, minScore float64, max int) []Answer {
	if max < 1 {
		max = 3
	}
	payload := searchRequest{Mensagem: mensagem, MaxResultados: max}
	if minScore >= 0 {
		payload.MinScore = &minScore
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return []Answer{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/base-conhecimento/buscar", strings.NewReader(string(body)))
	if err != nil {
		return []Answer{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return []Answer{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return []Answer{}
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return []Answer{}
	}
	if out.Resultados == nil {
		return []Answer{}
	}
	return out.Resultados
}

const suggestionLimit = 5

// Fallback prompts shown when the knowledge base has nothing to suggest.
var fallbackSuggestions = []string{
	"Como cadastrar um produto?",
	"Como consultar a validade de um lote?",
}

// RankSuggestions orders knowledge entries by popularity for the chat's
// suggestion chips, keeping at most limit titles. A limit of zero or less
// falls back to the default of five. An empty input yields a fixed starter
// pair so the chat never opens blank.
func RankSuggestions(answers []Answer, limit int) []string {
	if limit <= 0 {
		limit = suggestionLimit
	}
	if len(answers) == 0 {
		out := make([]string, len(fallbackSuggestions))
		copy(out, fallbackSuggestions)
		return out
	}
	ranked := make([]Answer, len(answers))
	copy(ranked, answers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Visualizacoes > ranked[j].Visualizacoes
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	titles := make([]string, 0, len(ranked))
	for _, a := range ranked {
		titles = append(titles, a.Titulo)
	}
	return titles
}
