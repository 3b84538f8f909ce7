package suppliers

import "time"

// Supplier represents a fornecedor keyed by CNPJ.
type Supplier struct {
	CNPJ              string    `json:"cnpj"`
	Nome              string    `json:"nome"`
	Contato           *string   `json:"contato,omitempty"`
	PoliticaDevolucao int       `json:"politica_devolucao"`
	Ativo             bool      `json:"ativo"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
