package knowledge

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the knowledge base.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the knowledge handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers FAQ management and lookup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/buscar", h.buscar)
	r.Get("/resposta/melhor", h.melhorResposta)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)
}

// ItemForm is the create/update payload.
type ItemForm struct {
	Titulo    string   `json:"titulo" validate:"required,max=200"`
	Resposta  string   `json:"resposta" validate:"required"`
	Keywords  []string `json:"keywords" validate:"required,min=1,dive,required"`
	Categoria string   `json:"categoria" validate:"max=100"`
	Ativo     *bool    `json:"ativo"`
}

func (f ItemForm) toModel() Item {
	ativo := true
	if f.Ativo != nil {
		ativo = *f.Ativo
	}
	return Item{
		Titulo:    f.Titulo,
		Resposta:  f.Resposta,
		Keywords:  f.Keywords,
		Categoria: f.Categoria,
		Ativo:     ativo,
	}
}

// BuscarForm is the chat lookup payload.
type BuscarForm struct {
	Mensagem      string   `json:"mensagem" validate:"required,min=3"`
	MinScore      *float64 `json:"min_score" validate:"omitempty,min=0,max=100"`
	MaxResultados *int     `json:"max_resultados" validate:"omitempty,min=1,max=10"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	onlyActive, _ := strconv.ParseBool(r.URL.Query().Get("apenas_ativos"))
	items, err := h.service.List(r.Context(), onlyActive)
	if err != nil {
		h.logger.Error("list conhecimentos", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form ItemForm
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
		h.logger.Warn("create conhecimento", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form ItemForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "corpo JSON invalido")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), form.toModel())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type buscarResponse struct {
	Resultados []Match `json:"resultados"`
	Total      int     `json:"total"`
}

func (h *Handler) buscar(w http.ResponseWriter, r *http.Request) {
	var form BuscarForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "corpo JSON invalido")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	params := SearchParams{
		Mensagem:      form.Mensagem,
		MinScore:      DefaultMinScore,
		MaxResultados: DefaultMaxResultados,
	}
	if form.MinScore != nil {
		params.MinScore = *form.MinScore
	}
	if form.MaxResultados != nil {
		params.MaxResultados = *form.MaxResultados
	}

	matches, err := h.service.Buscar(r.Context(), params)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, buscarResponse{Resultados: matches, Total: len(matches)})
}

func (h *Handler) melhorResposta(w http.ResponseWriter, r *http.Request) {
	mensagem := r.URL.Query().Get("mensagem")
	best, err := h.service.MelhorResposta(r.Context(), mensagem)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, best)
}
