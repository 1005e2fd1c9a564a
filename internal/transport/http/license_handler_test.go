package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "idmeapi/internal/errors"
	"idmeapi/internal/license"
)

// mockLicenseService mocks services.LicenseService.
type mockLicenseService struct {
	mock.Mock
}

func (m *mockLicenseService) Validate(ctx context.Context, key, deviceID, deviceName string) *license.ValidationResult {
	args := m.Called(ctx, key, deviceID, deviceName)
	return args.Get(0).(*license.ValidationResult)
}

func (m *mockLicenseService) Issue(ctx context.Context, req license.IssueRequest) (*license.Issuance, error) {
	args := m.Called(ctx, req)
	if iss := args.Get(0); iss != nil {
		return iss.(*license.Issuance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLicenseService) DeactivateDevice(ctx context.Context, key, deviceID string) (int, error) {
	args := m.Called(ctx, key, deviceID)
	return args.Int(0), args.Error(1)
}

func (m *mockLicenseService) ListDevices(ctx context.Context, key string) ([]license.BoundDevice, error) {
	args := m.Called(ctx, key)
	if devices := args.Get(0); devices != nil {
		return devices.([]license.BoundDevice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLicenseService) Renew(ctx context.Context, key string, months int) (*license.Record, error) {
	args := m.Called(ctx, key, months)
	if rec := args.Get(0); rec != nil {
		return rec.(*license.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLicenseService) Export(ctx context.Context) ([]license.Record, error) {
	args := m.Called(ctx)
	if recs := args.Get(0); recs != nil {
		return recs.([]license.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func successResult() *license.ValidationResult {
	daysLeft := 18
	return &license.ValidationResult{
		Success:      true,
		Message:      "License is valid",
		Status:       "ACTIVE",
		Reason:       license.ReasonOK,
		ExpiryDate:   "15/09/2026",
		DaysLeft:     &daysLeft,
		CustomerName: "Aisyah Rahman",
		DeviceInfo:   &license.DeviceInfo{Slot: 1, Name: "Chrome", NewDevice: true},
		Timestamp:    time.Now(),
	}
}

func TestValidateGet(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		svc := &mockLicenseService{}
		svc.On("Validate", mock.Anything, "IDME-BA9P-L6Q9-GUNV", "dev-1", "Chrome").
			Return(successResult())
		handler := NewLicenseHandler(svc, testLogger())

		req := httptest.NewRequest(http.MethodGet,
			"/validate?key=IDME-BA9P-L6Q9-GUNV&deviceId=dev-1&deviceName=Chrome", nil)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Aisyah Rahman", body["customerName"])
		assert.Equal(t, float64(18), body["daysLeft"])
		svc.AssertExpectations(t)
	})

	t.Run("missing key", func(t *testing.T) {
		handler := NewLicenseHandler(&mockLicenseService{}, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/validate?deviceId=dev-1", nil)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed key rejected before service call", func(t *testing.T) {
		svc := &mockLicenseService{}
		handler := NewLicenseHandler(svc, testLogger())

		req := httptest.NewRequest(http.MethodGet,
			"/validate?key=NOT-A-REAL-KEY&deviceId=dev-1", nil)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_KEY_FORMAT")
		svc.AssertNotCalled(t, "Validate")
	})
}

func TestValidatePost(t *testing.T) {
	t.Run("device limit result passes through as 200", func(t *testing.T) {
		svc := &mockLicenseService{}
		svc.On("Validate", mock.Anything, "IDME-BA9P-L6Q9-GUNV", "dev-4", "Edge").
			Return(&license.ValidationResult{
				Message:        "Device limit reached! Maximum 3 devices allowed. Please deactivate an old device first.",
				Status:         "DEVICE_LIMIT_REACHED",
				Reason:         license.ReasonDeviceLimit,
				MaxDevices:     3,
				CurrentDevices: []string{"Chrome", "Firefox", "Safari"},
				Timestamp:      time.Now(),
			})
		handler := NewLicenseHandler(svc, testLogger())

		payload, _ := json.Marshal(ValidateRequest{
			LicenseKey: "IDME-BA9P-L6Q9-GUNV",
			DeviceID:   "dev-4",
			DeviceName: "Edge",
		})
		req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "DEVICE_LIMIT_REACHED", body["status"])
		assert.Len(t, body["currentDevices"], 3)
	})

	t.Run("default device name applied", func(t *testing.T) {
		svc := &mockLicenseService{}
		svc.On("Validate", mock.Anything, "IDME-BA9P-L6Q9-GUNV", "dev-1", "Unknown Device").
			Return(successResult())
		handler := NewLicenseHandler(svc, testLogger())

		payload, _ := json.Marshal(map[string]string{
			"licenseKey": "IDME-BA9P-L6Q9-GUNV",
			"deviceId":   "dev-1",
		})
		req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})
}

func TestDeactivate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &mockLicenseService{}
		svc.On("DeactivateDevice", mock.Anything, "IDME-BA9P-L6Q9-GUNV", "dev-1").
			Return(1, nil)
		handler := NewLicenseHandler(svc, testLogger())

		payload, _ := json.Marshal(DeactivateRequest{
			LicenseKey: "IDME-BA9P-L6Q9-GUNV",
			DeviceID:   "dev-1",
		})
		req := httptest.NewRequest(http.MethodPost, "/deactivate", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body DeactivateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, 1, body.RemainingDevices)
		assert.Equal(t, 3, body.MaxDevices)
	})

	t.Run("device not bound", func(t *testing.T) {
		svc := &mockLicenseService{}
		svc.On("DeactivateDevice", mock.Anything, "IDME-BA9P-L6Q9-GUNV", "dev-x").
			Return(0, apperrors.ErrDeviceNotFound)
		handler := NewLicenseHandler(svc, testLogger())

		payload, _ := json.Marshal(DeactivateRequest{
			LicenseKey: "IDME-BA9P-L6Q9-GUNV",
			DeviceID:   "dev-x",
		})
		req := httptest.NewRequest(http.MethodPost, "/deactivate", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "DEVICE_NOT_FOUND")
	})

	t.Run("unknown license", func(t *testing.T) {
		svc := &mockLicenseService{}
		svc.On("DeactivateDevice", mock.Anything, "IDME-AAAA-BBBB-CCCC", "dev-1").
			Return(0, apperrors.ErrLicenseNotFound)
		handler := NewLicenseHandler(svc, testLogger())

		payload, _ := json.Marshal(DeactivateRequest{
			LicenseKey: "IDME-AAAA-BBBB-CCCC",
			DeviceID:   "dev-1",
		})
		req := httptest.NewRequest(http.MethodPost, "/deactivate", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "LICENSE_NOT_FOUND")
	})
}

func TestDevices(t *testing.T) {
	t.Run("lists bound devices", func(t *testing.T) {
		svc := &mockLicenseService{}
		svc.On("ListDevices", mock.Anything, "IDME-BA9P-L6Q9-GUNV").
			Return([]license.BoundDevice{
				{Slot: 1, DeviceID: "dev-1", Name: "Chrome", LastUsed: "20/08/2026 09:15:00"},
				{Slot: 3, DeviceID: "dev-3", Name: "Safari"},
			}, nil)
		handler := NewLicenseHandler(svc, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/devices?key=IDME-BA9P-L6Q9-GUNV", nil)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body DevicesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		require.Len(t, body.Devices, 2)
		assert.Equal(t, 3, body.Devices[1].Slot)
	})

	t.Run("missing key", func(t *testing.T) {
		handler := NewLicenseHandler(&mockLicenseService{}, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/devices", nil)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
