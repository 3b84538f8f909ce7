package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

// Handler serves the dashboard aggregate.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/kpis", h.kpis)
}

func (h *Handler) kpis(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.service.KPIs(r.Context())
	if err != nil {
		h.logger.Error("dashboard kpis", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, kpis)
}
