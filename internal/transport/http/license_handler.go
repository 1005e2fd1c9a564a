package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "idmeapi/internal/errors"
	"idmeapi/internal/infrastructure"
	"idmeapi/internal/license"
	"idmeapi/internal/services"
)

// LicenseHandler serves the validation and device endpoints used by the
// extension.
type LicenseHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewLicenseHandler creates a license handler.
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// Routes returns the /api/license subrouter.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/validate", h.ValidateGet)
	r.Post("/validate", h.ValidatePost)
	r.Post("/deactivate", h.Deactivate)
	r.Get("/devices", h.Devices)
	return r
}

// ValidateRequest is the POST validation payload. The GET form carries the
// same fields as query parameters for older extension builds.
type ValidateRequest struct {
	LicenseKey string `json:"licenseKey"`
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

// Bind implements render.Binder.
func (v *ValidateRequest) Bind(r *http.Request) error {
	v.LicenseKey = strings.TrimSpace(v.LicenseKey)
	if v.LicenseKey == "" {
		return errors.New("licenseKey is required")
	}
	if v.DeviceID == "" {
		return errors.New("deviceId is required")
	}
	if v.DeviceName == "" {
		v.DeviceName = "Unknown Device"
	}
	return nil
}

// ValidateGet handles GET /api/license/validate.
func (h *LicenseHandler) ValidateGet(w http.ResponseWriter, r *http.Request) {
	req := &ValidateRequest{
		LicenseKey: r.URL.Query().Get("key"),
		DeviceID:   r.URL.Query().Get("deviceId"),
		DeviceName: r.URL.Query().Get("deviceName"),
	}
	if err := req.Bind(r); err != nil {
		h.renderBadRequest(w, r, err)
		return
	}
	h.validate(w, r, req)
}

// ValidatePost handles POST /api/license/validate.
func (h *LicenseHandler) ValidatePost(w http.ResponseWriter, r *http.Request) {
	req := &ValidateRequest{}
	if err := render.Bind(r, req); err != nil {
		h.renderBadRequest(w, r, err)
		return
	}
	h.validate(w, r, req)
}

func (h *LicenseHandler) validate(w http.ResponseWriter, r *http.Request, req *ValidateRequest) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.validate",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("license.key_masked", license.MaskKey(req.LicenseKey)),
		),
	)
	defer span.End()

	if !license.KeyPattern.MatchString(req.LicenseKey) {
		span.SetAttributes(attribute.String("outcome", "bad_key_format"))
		problem := apperrors.MapLicenseError(apperrors.ErrInvalidKeyFormat,
			infrastructure.TraceIDFromContext(ctx))
		render.Render(w, r, problem)
		return
	}

	result := h.service.Validate(ctx, req.LicenseKey, req.DeviceID, req.DeviceName)
	span.SetAttributes(attribute.String("outcome", string(result.Reason)))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// DeactivateRequest asks to release one device slot.
type DeactivateRequest struct {
	LicenseKey string `json:"licenseKey"`
	DeviceID   string `json:"deviceId"`
}

// Bind implements render.Binder.
func (d *DeactivateRequest) Bind(r *http.Request) error {
	d.LicenseKey = strings.TrimSpace(d.LicenseKey)
	if d.LicenseKey == "" {
		return errors.New("licenseKey is required")
	}
	if d.DeviceID == "" {
		return errors.New("deviceId is required")
	}
	return nil
}

// DeactivateResponse reports the freed slot count.
type DeactivateResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	RemainingDevices int    `json:"remainingDevices"`
	MaxDevices       int    `json:"maxDevices"`
}

// Deactivate handles POST /api/license/deactivate.
func (h *LicenseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &DeactivateRequest{}
	if err := render.Bind(r, req); err != nil {
		h.renderBadRequest(w, r, err)
		return
	}

	remaining, err := h.service.DeactivateDevice(ctx, req.LicenseKey, req.DeviceID)
	if err != nil {
		h.renderLicenseError(w, r, err)
		return
	}

	render.JSON(w, r, DeactivateResponse{
		Success:          true,
		Message:          "Device deactivated successfully",
		RemainingDevices: remaining,
		MaxDevices:       license.MaxDevices,
	})
}

// DevicesResponse lists the occupied slots on a license.
type DevicesResponse struct {
	Success    bool                  `json:"success"`
	Devices    []license.BoundDevice `json:"devices"`
	MaxDevices int                   `json:"maxDevices"`
}

// Devices handles GET /api/license/devices.
func (h *LicenseHandler) Devices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		h.renderBadRequest(w, r, errors.New("key query parameter is required"))
		return
	}

	devices, err := h.service.ListDevices(ctx, key)
	if err != nil {
		h.renderLicenseError(w, r, err)
		return
	}

	render.JSON(w, r, DevicesResponse{
		Success:    true,
		Devices:    devices,
		MaxDevices: license.MaxDevices,
	})
}

func (h *LicenseHandler) renderBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	traceID := infrastructure.TraceIDFromContext(r.Context())
	problem := apperrors.NewProblemDetails(
		http.StatusBadRequest,
		"/errors/invalid-request",
		"Invalid Request",
		err.Error(),
		r.URL.Path,
	).WithExtension("trace_id", traceID)
	render.Render(w, r, problem)
}

func (h *LicenseHandler) renderLicenseError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "license operation failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	render.Render(w, r, apperrors.MapLicenseError(err, infrastructure.TraceIDFromContext(ctx)))
}
