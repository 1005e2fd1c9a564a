package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// License domain sentinel errors. Handlers map these to problem details;
// core packages return them and never shape HTTP responses themselves.
// Business rejections (not active, expired, device limit) are not errors:
// the validator reports them inside the validation result.
var (
	ErrLicenseNotFound        = errors.New("license not found")
	ErrDeviceNotFound         = errors.New("device not found")
	ErrInvalidDateFormat      = errors.New("invalid date format")
	ErrInvalidKeyFormat       = errors.New("invalid license key format")
	ErrKeyGenerationExhausted = errors.New("license key generation exhausted retry attempts")
	ErrRateLimited            = errors.New("rate limited")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions into the top-level object.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, 5+len(pd.Extensions))
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapLicenseError maps domain errors to HTTP problem details.
func MapLicenseError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/license#trace-%s", traceID)

	switch {
	case errors.Is(err, ErrLicenseNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/license-not-found",
			"License Not Found",
			"This license key does not exist in our database.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "LICENSE_NOT_FOUND")

	case errors.Is(err, ErrDeviceNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/device-not-found",
			"Device Not Found",
			"The given device is not registered to this license.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "DEVICE_NOT_FOUND")

	case errors.Is(err, ErrInvalidDateFormat):
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/bad-license-data",
			"Bad License Data",
			"The stored expiry date could not be parsed. Contact the administrator to fix the license data.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "BAD_LICENSE_DATA")

	case errors.Is(err, ErrInvalidKeyFormat):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-key-format",
			"Invalid License Key Format",
			"License key must be in format: IDME-XXXX-XXXX-XXXX",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INVALID_KEY_FORMAT").
			WithExtension("expected_format", "IDME-XXXX-XXXX-XXXX")

	case errors.Is(err, ErrKeyGenerationExhausted):
		// Internal issuance fault; operators see the real cause in the logs.
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/issuance-failed",
			"License Issuance Failed",
			"Could not issue a license key. Please try again or contact support.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "ISSUANCE_FAILED")

	case errors.Is(err, ErrRateLimited):
		return NewProblemDetails(
			http.StatusTooManyRequests,
			"/errors/rate-limited",
			"Too Many Requests",
			"Too many requests. Please try again later.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "RATE_LIMITED")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-error",
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
