package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Pinger reports whether the backing spreadsheet is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness information.
type HealthHandler struct {
	store   Pinger
	version string
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler. store may be nil, in which
// case the sheet check reports "skipped".
func NewHealthHandler(store Pinger, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		version: version,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// Routes returns the /api/health subrouter.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Health)
	return r
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
}

// Health handles GET /api/health. Degraded sheet connectivity reports 503
// so load balancers stop routing traffic to a node that cannot validate.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Checks:  map[string]string{},
	}

	if h.store == nil {
		resp.Checks["sheets"] = "skipped"
	} else if err := h.store.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "sheet health check failed",
			slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Checks["sheets"] = "unreachable"
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, resp)
		return
	} else {
		resp.Checks["sheets"] = "ok"
	}

	render.JSON(w, r, resp)
}
