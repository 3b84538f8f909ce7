package suppliers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the fornecedores module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the supplier handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers supplier routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{cnpj}", h.get)
	r.Put("/{cnpj}", h.update)
	r.Delete("/{cnpj}", h.delete)
}

// SupplierForm is the create/update payload.
type SupplierForm struct {
	CNPJ              string  `json:"cnpj" validate:"omitempty,len=14,numeric"`
	Nome              string  `json:"nome" validate:"required,max=100"`
	Contato           *string `json:"contato" validate:"omitempty,max=100"`
	PoliticaDevolucao int     `json:"politica_devolucao" validate:"min=0,max=365"`
	Ativo             *bool   `json:"ativo"`
}

func (f SupplierForm) toModel() Supplier {
	ativo := true
	if f.Ativo != nil {
		ativo = *f.Ativo
	}
	return Supplier{
		CNPJ:              f.CNPJ,
		Nome:              f.Nome,
		Contato:           f.Contato,
		PoliticaDevolucao: f.PoliticaDevolucao,
		Ativo:             ativo,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list fornecedores", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Supplier{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.service.Get(r.Context(), chi.URLParam(r, "cnpj"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form SupplierForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "corpo JSON invalido")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), form.toModel())
	if err != nil {
		h.logger.Warn("create fornecedor", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form SupplierForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "corpo JSON invalido")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "cnpj"), form.toModel())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "cnpj")); err != nil {
		h.logger.Warn("delete fornecedor", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
