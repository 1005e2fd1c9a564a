package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "idmeapi/internal/errors"
	"idmeapi/internal/infrastructure"
	"idmeapi/internal/license"
	"idmeapi/internal/services"
)

// PurchaseHandler accepts purchase-form submissions and issues licenses.
type PurchaseHandler struct {
	service  services.LicenseService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewPurchaseHandler creates a purchase handler.
func NewPurchaseHandler(service services.LicenseService, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(slog.String("handler", "purchase")),
	}
}

// Routes returns the /api/purchase subrouter.
func (h *PurchaseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	return r
}

// PurchaseRequest is the payment-form payload forwarded by the storefront.
type PurchaseRequest struct {
	FullName    string `json:"fullName" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,min=7,max=20"`
	ReceiptURL  string `json:"receiptUrl" validate:"omitempty,url"`
	PurchasedAt int64  `json:"timestamp" validate:"omitempty,gt=0"` // epoch milliseconds
}

// Bind implements render.Binder.
func (p *PurchaseRequest) Bind(r *http.Request) error {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	return nil
}

// PurchaseResponse confirms issuance to the storefront.
type PurchaseResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	LicenseKey string `json:"licenseKey"`
	ExpiryDate string `json:"expiryDate"`
}

// Create handles POST /api/purchase.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.TraceIDFromContext(ctx)

	req := &PurchaseRequest{}
	if err := render.Bind(r, req); err != nil {
		problem := apperrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-request",
			"Invalid Request",
			"Request body must be valid JSON.",
			r.URL.Path,
		).WithExtension("trace_id", traceID)
		render.Render(w, r, problem)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		problem := apperrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/validation-failed",
			"Validation Failed",
			"One or more fields are invalid.",
			r.URL.Path,
		).WithExtension("trace_id", traceID).
			WithExtension("fields", fieldErrors(err))
		render.Render(w, r, problem)
		return
	}

	issueReq := license.IssueRequest{
		FullName:   req.FullName,
		Email:      req.Email,
		Phone:      req.Phone,
		ReceiptURL: req.ReceiptURL,
	}
	if req.PurchasedAt > 0 {
		issueReq.PurchasedAt = time.UnixMilli(req.PurchasedAt)
	}

	issuance, err := h.service.Issue(ctx, issueReq)
	if err != nil {
		h.logger.ErrorContext(ctx, "license issuance failed",
			slog.String("customer_email", req.Email),
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.MapLicenseError(err, traceID))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, PurchaseResponse{
		Success:    true,
		Message:    "License generated and sent to customer email",
		LicenseKey: issuance.Key,
		ExpiryDate: issuance.ExpiryDate,
	})
}

// fieldErrors flattens validator errors into field -> violated rule.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
