package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "idmeapi/internal/errors"
	"idmeapi/internal/exporter"
	"idmeapi/internal/infrastructure"
	"idmeapi/internal/license"
	"idmeapi/internal/services"
)

// AdminHandler serves the authenticated admin surface: renewals and report
// exports.
type AdminHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(service services.LicenseService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "admin")),
	}
}

// Routes returns the /api/admin subrouter. Auth middleware is applied by
// the caller.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/licenses/{key}/renew", h.Renew)
	r.Get("/licenses/export", h.Export)
	return r
}

// RenewRequest extends a license by whole months.
type RenewRequest struct {
	Months int `json:"months"`
}

// Bind implements render.Binder.
func (rr *RenewRequest) Bind(r *http.Request) error {
	if rr.Months == 0 {
		rr.Months = 1
	}
	if rr.Months < 1 || rr.Months > 24 {
		return errors.New("months must be between 1 and 24")
	}
	return nil
}

// RenewResponse summarizes the renewed license.
type RenewResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	LicenseKey  string `json:"licenseKey"`
	ExpiryDate  string `json:"expiryDate"`
	Status      string `json:"status"`
	LastRenewed string `json:"lastRenewed"`
	TotalPaid   string `json:"totalPaid"`
}

// Renew handles POST /api/admin/licenses/{key}/renew.
func (h *AdminHandler) Renew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.TraceIDFromContext(ctx)
	key := strings.TrimSpace(chi.URLParam(r, "key"))

	req := &RenewRequest{}
	if err := render.Bind(r, req); err != nil {
		problem := apperrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-request",
			"Invalid Request",
			err.Error(),
			r.URL.Path,
		).WithExtension("trace_id", traceID)
		render.Render(w, r, problem)
		return
	}

	if !license.KeyPattern.MatchString(key) {
		render.Render(w, r, apperrors.MapLicenseError(apperrors.ErrInvalidKeyFormat, traceID))
		return
	}

	rec, err := h.service.Renew(ctx, key, req.Months)
	if err != nil {
		h.logger.WarnContext(ctx, "renewal failed",
			slog.String("key", license.MaskKey(key)),
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.MapLicenseError(err, traceID))
		return
	}

	render.JSON(w, r, RenewResponse{
		Success:     true,
		Message:     fmt.Sprintf("License extended by %d month(s)", req.Months),
		LicenseKey:  rec.Key,
		ExpiryDate:  rec.Expiry,
		Status:      rec.Status,
		LastRenewed: rec.LastRenewed,
		TotalPaid:   rec.TotalPaid,
	})
}

// Export handles GET /api/admin/licenses/export. The format query parameter
// selects xlsx (default) or csv.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.TraceIDFromContext(ctx)

	records, err := h.service.Export(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "export failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.MapLicenseError(err, traceID))
		return
	}

	stamp := time.Now().Format("2006-01-02")
	format := strings.ToLower(r.URL.Query().Get("format"))

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="licenses-%s.csv"`, stamp))
		err = exporter.WriteCSV(w, records)
	case "", "xlsx":
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="licenses-%s.xlsx"`, stamp))
		err = exporter.WriteXLSX(w, records)
	default:
		problem := apperrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-request",
			"Invalid Request",
			fmt.Sprintf("unsupported export format %q, use xlsx or csv", format),
			r.URL.Path,
		).WithExtension("trace_id", traceID)
		render.Render(w, r, problem)
		return
	}

	if err != nil {
		// Headers already sent; all we can do is log.
		h.logger.ErrorContext(ctx, "export write failed",
			slog.String("format", format),
			slog.String("error", err.Error()))
	}
}
