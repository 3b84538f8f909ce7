package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sgep-io/sgep/internal/platform/httpx"
	"github.com/sgep-io/sgep/internal/shared"
)

// SweepScheduler queues an expiry sweep to run in the background.
type SweepScheduler interface {
	ScheduleSweep(ctx context.Context) error
}

// Handler wires HTTP endpoints for the produtos module.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	validator      *validator.Validate
	sweeper        SweepScheduler
	importMaxBytes int64
}

// NewHandler constructs the catalog handler. sweeper may be nil, in which case
// imported lotes wait for the nightly sweep.
func NewHandler(logger *slog.Logger, service *Service, sweeper SweepScheduler, importMaxBytes int64) *Handler {
	if importMaxBytes <= 0 {
		importMaxBytes = 10 << 20
	}
	return &Handler{
		logger:         logger,
		service:        service,
		validator:      validator.New(),
		sweeper:        sweeper,
		importMaxBytes: importMaxBytes,
	}
}

// MountRoutes registers product and lote routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/importar-upload", h.importUpload)
	r.Get("/{codigo_lm}", h.get)
	r.Put("/{codigo_lm}", h.update)
	r.Delete("/{codigo_lm}", h.delete)

	r.Post("/{codigo_lm}/lotes", h.addLote)
	r.Put("/{codigo_lm}/lotes/{codigo_lote}", h.updateLote)
	r.Delete("/{codigo_lm}/lotes/{codigo_lote}", h.deactivateLote)
}

// ProdutoForm is the create/update payload.
type ProdutoForm struct {
	CodigoLM         int64   `json:"codigo_lm" validate:"omitempty,min=1"`
	NomeProduto      string  `json:"nome_produto" validate:"required,max=200"`
	Marca            string  `json:"marca" validate:"required,max=100"`
	EAN              *int64  `json:"ean"`
	FichaTec         string  `json:"ficha_tec" validate:"max=500"`
	LinkProd         string  `json:"link_prod" validate:"max=300"`
	Cor              string  `json:"cor" validate:"max=50"`
	AVS              bool    `json:"avs"`
	PrecoUnit        float64 `json:"preco_unit" validate:"min=0"`
	EstoqueReportado *int    `json:"estoque_reportado"`
	FornecedorCNPJ   string  `json:"fornecedor_cnpj" validate:"required,len=14,numeric"`
}

func (f ProdutoForm) toModel() Produto {
	return Produto{
		CodigoLM:         f.CodigoLM,
		NomeProduto:      f.NomeProduto,
		Marca:            f.Marca,
		EAN:              f.EAN,
		FichaTec:         f.FichaTec,
		LinkProd:         f.LinkProd,
		Cor:              f.Cor,
		AVS:              f.AVS,
		PrecoUnit:        f.PrecoUnit,
		EstoqueReportado: f.EstoqueReportado,
		FornecedorCNPJ:   f.FornecedorCNPJ,
	}
}

// LoteForm is the lote create/update payload.
type LoteForm struct {
	CodigoLote     string    `json:"codigo_lote" validate:"omitempty,max=50"`
	DataFabricacao time.Time `json:"data_fabricacao" validate:"required"`
	DataValidade   time.Time `json:"data_validade" validate:"required"`
	QuantidadeLote int       `json:"quantidade_lote" validate:"required,min=1"`
	Ativo          *bool     `json:"ativo"`
}

func (f LoteForm) toModel() Lote {
	ativo := true
	if f.Ativo != nil {
		ativo = *f.Ativo
	}
	return Lote{
		CodigoLote:     f.CodigoLote,
		DataFabricacao: f.DataFabricacao,
		DataValidade:   f.DataValidade,
		QuantidadeLote: f.QuantidadeLote,
		Ativo:          ativo,
	}
}

type listResponse struct {
	Produtos  []ProdutoView     `json:"produtos"`
	Paginacao shared.Pagination `json:"paginacao"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := ListFilters{
		Skip:  skip,
		Limit: limit,
		Termo: r.URL.Query().Get("termo"),
	}

	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list produtos", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Produtos:  result.Produtos,
		Paginacao: shared.NewPagination(filters.Skip, filters.Limit, result.Total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	codigoLM, err := parseCodigoLM(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "codigo_lm invalido")
		return
	}
	view, err := h.service.Get(r.Context(), codigoLM)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form ProdutoForm
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
		h.logger.Warn("create produto", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	codigoLM, err := parseCodigoLM(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "codigo_lm invalido")
		return
	}
	var form ProdutoForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "corpo JSON invalido")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p := form.toModel()
	p.CodigoLM = codigoLM
	updated, err := h.service.Update(r.Context(), codigoLM, p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	codigoLM, err := parseCodigoLM(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "codigo_lm invalido")
		return
	}
	if err := h.service.Delete(r.Context(), codigoLM); err != nil {
		h.logger.Warn("delete produto", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type importResponse struct {
	Mensagem string       `json:"mensagem"`
	Detalhes ImportResult `json:"detalhes"`
}

func (h *Handler) importUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.importMaxBytes)
	if err := r.ParseMultipartForm(h.importMaxBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "upload multipart invalido ou acima do limite")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "campo 'file' obrigatorio")
		return
	}
	defer file.Close()

	result, err := h.service.ImportSpreadsheet(r.Context(), file)
	if err != nil {
		h.logger.Warn("import produtos", slog.String("file", header.Filename), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("import produtos",
		slog.String("file", header.Filename),
		slog.Int("criados", result.ProdutosCriados),
		slog.Int("atualizados", result.ProdutosAtualizados))

	if h.sweeper != nil && result.TotalProcessados > 0 {
		if err := h.sweeper.ScheduleSweep(r.Context()); err != nil {
			h.logger.Warn("schedule expiry sweep", slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusOK, importResponse{
		Mensagem: "Importacao concluida",
		Detalhes: result,
	})
}

func (h *Handler) addLote(w http.ResponseWriter, r *http.Request) {
	codigoLM, err := parseCodigoLM(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "codigo_lm invalido")
		return
	}
	var form LoteForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "corpo JSON invalido")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	view, err := h.service.AddLote(r.Context(), codigoLM, form.toModel())
	if err != nil {
		h.logger.Warn("add lote", slog.Int64("codigo_lm", codigoLM), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) updateLote(w http.ResponseWriter, r *http.Request) {
	codigoLM, err := parseCodigoLM(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "codigo_lm invalido")
		return
	}
	var form LoteForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "corpo JSON invalido")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	view, err := h.service.UpdateLote(r.Context(), codigoLM, chi.URLParam(r, "codigo_lote"), form.toModel())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) deactivateLote(w http.ResponseWriter, r *http.Request) {
	codigoLM, err := parseCodigoLM(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "codigo_lm invalido")
		return
	}
	if err := h.service.DeactivateLote(r.Context(), codigoLM, chi.URLParam(r, "codigo_lote")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func parseCodigoLM(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "codigo_lm"), 10, 64)
}
