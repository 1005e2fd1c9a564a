package http

import (
	"bytes"
	"encoding/json"
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

func postPurchase(t *testing.T, handler *PurchaseHandler, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)
	return rec
}

func TestPurchaseCreate(t *testing.T) {
	valid := PurchaseRequest{
		FullName:    "Aisyah Rahman",
		Email:       "aisyah@example.com",
		Phone:       "0123456789",
		ReceiptURL:  "https://pay.example.com/r/123",
		PurchasedAt: time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC).UnixMilli(),
	}

	t.Run("issues license", func(t *testing.T) {
		svc := &mockLicenseService{}
		svc.On("Issue", mock.Anything, mock.MatchedBy(func(req license.IssueRequest) bool {
			return req.FullName == "Aisyah Rahman" &&
				req.Email == "aisyah@example.com" &&
				!req.PurchasedAt.IsZero()
		})).Return(&license.Issuance{
			Key:        "IDME-BA9P-L6Q9-GUNV",
			ExpiryDate: "14/09/2026",
			Record:     &license.Record{Key: "IDME-BA9P-L6Q9-GUNV"},
		}, nil)
		handler := NewPurchaseHandler(svc, testLogger())

		rec := postPurchase(t, handler, valid)

		require.Equal(t, http.StatusCreated, rec.Code)
		var body PurchaseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, "IDME-BA9P-L6Q9-GUNV", body.LicenseKey)
		assert.Equal(t, "14/09/2026", body.ExpiryDate)
		svc.AssertExpectations(t)
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(*PurchaseRequest)
			wantKey string
		}{
			{"missing name", func(p *PurchaseRequest) { p.FullName = "" }, "FullName"},
			{"bad email", func(p *PurchaseRequest) { p.Email = "not-an-email" }, "Email"},
			{"short phone", func(p *PurchaseRequest) { p.Phone = "123" }, "Phone"},
			{"bad receipt url", func(p *PurchaseRequest) { p.ReceiptURL = "notaurl" }, "ReceiptURL"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := valid
				tt.mutate(&req)
				handler := NewPurchaseHandler(&mockLicenseService{}, testLogger())

				rec := postPurchase(t, handler, req)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Contains(t, rec.Body.String(), tt.wantKey)
			})
		}
	})

	t.Run("issuance exhaustion maps to 500", func(t *testing.T) {
		svc := &mockLicenseService{}
		svc.On("Issue", mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrKeyGenerationExhausted)
		handler := NewPurchaseHandler(svc, testLogger())

		rec := postPurchase(t, handler, valid)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "ISSUANCE_FAILED")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewPurchaseHandler(&mockLicenseService{}, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
