package knowledge

import "time"

// Item is an FAQ entry served by the chat lookup.
type Item struct {
	ID            string    `json:"id"`
	Titulo        string    `json:"titulo"`
	Resposta      string    `json:"resposta"`
	Keywords      []string  `json:"keywords"`
	Categoria     string    `json:"categoria"`
	Ativo         bool      `json:"ativo"`
	Visualizacoes int       `json:"visualizacoes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Match pairs an item with its relevance score for a query.
type Match struct {
	Item
	Score float64 `json:"score"`
}
