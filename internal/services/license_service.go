// Package services wires the license core to the HTTP transport, adding
// request-scoped logging and metrics around the domain operations.
package services

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"idmeapi/internal/infrastructure"
	"idmeapi/internal/license"
)

// LicenseService is the operation surface exposed to the HTTP handlers.
type LicenseService interface {
	// Validate checks a key and binds the presenting device.
	Validate(ctx context.Context, key, deviceID, deviceName string) *license.ValidationResult
	// Issue creates a license from a purchase submission.
	Issue(ctx context.Context, req license.IssueRequest) (*license.Issuance, error)
	// DeactivateDevice frees the slot binding deviceID.
	DeactivateDevice(ctx context.Context, key, deviceID string) (remaining int, err error)
	// ListDevices returns the occupied slots for a key.
	ListDevices(ctx context.Context, key string) ([]license.BoundDevice, error)
	// Renew extends a license by whole months.
	Renew(ctx context.Context, key string, months int) (*license.Record, error)
	// Export returns every license record for reporting.
	Export(ctx context.Context) ([]license.Record, error)
}

type licenseService struct {
	validator *license.Validator
	issuer    *license.Issuer
	store     license.Store
	logger    *slog.Logger
	metrics   *infrastructure.LicenseMetrics
}

// NewLicenseService assembles the service. metrics may be nil in tests.
func NewLicenseService(
	validator *license.Validator,
	issuer *license.Issuer,
	store license.Store,
	logger *slog.Logger,
	metrics *infrastructure.LicenseMetrics,
) LicenseService {
	return &licenseService{
		validator: validator,
		issuer:    issuer,
		store:     store,
		logger:    logger.With(slog.String("component", "license_service")),
		metrics:   metrics,
	}
}

func (s *licenseService) Validate(ctx context.Context, key, deviceID, deviceName string) *license.ValidationResult {
	start := time.Now()
	result := s.validator.Validate(ctx, key, deviceID, deviceName)

	if s.metrics != nil {
		s.metrics.Validations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", string(result.Reason)),
		))
	}

	s.logger.InfoContext(ctx, "validation handled",
		slog.String("key", license.MaskKey(key)),
		slog.String("outcome", string(result.Reason)),
		slog.Duration("elapsed", time.Since(start)))
	return result
}

func (s *licenseService) Issue(ctx context.Context, req license.IssueRequest) (*license.Issuance, error) {
	issuance, err := s.issuer.Issue(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.LicensesIssued.Add(ctx, 1)
	}
	return issuance, nil
}

func (s *licenseService) DeactivateDevice(ctx context.Context, key, deviceID string) (int, error) {
	remaining, err := s.validator.Deactivate(ctx, key, deviceID)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.DevicesReleased.Add(ctx, 1)
	}
	return remaining, nil
}

func (s *licenseService) ListDevices(ctx context.Context, key string) ([]license.BoundDevice, error) {
	return s.validator.Devices(ctx, key)
}

func (s *licenseService) Renew(ctx context.Context, key string, months int) (*license.Record, error) {
	return s.issuer.Extend(ctx, key, months)
}

func (s *licenseService) Export(ctx context.Context) ([]license.Record, error) {
	return s.store.All(ctx)
}
