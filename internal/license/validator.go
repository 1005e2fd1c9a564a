package license

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	apperrors "idmeapi/internal/errors"
)

// Config carries the issuance and validation policy. It is built once from
// application configuration and passed in explicitly; nothing in this package
// reads globals.
type Config struct {
	DurationDays int    // validity period granted at issuance
	ReminderDays int    // daysLeft threshold for the renewal reminder flag
	PriceRM      int    // price per license period, in RM
	AdminEmail   string
	SupportURL   string
}

// Reason classifies a validation outcome beyond the user-facing status string.
type Reason string

const (
	ReasonOK          Reason = "OK"
	ReasonInvalid     Reason = "INVALID"
	ReasonNotActive   Reason = "NOT_ACTIVE"
	ReasonBadData     Reason = "BAD_DATA"
	ReasonExpired     Reason = "EXPIRED"
	ReasonDeviceLimit Reason = "DEVICE_LIMIT"
	ReasonError       Reason = "ERROR"
)

// DeviceInfo identifies the slot a validated device occupies.
type DeviceInfo struct {
	Slot      int    `json:"slot"`
	Name      string `json:"name"`
	NewDevice bool   `json:"newDevice,omitempty"`
}

// ValidationResult is the structured outcome returned to the extension.
// Business rejections are results, not errors; only transport-level faults
// cross the boundary as errors.
type ValidationResult struct {
	Success             bool        `json:"success"`
	Message             string      `json:"message"`
	Status              string      `json:"status"`
	Reason              Reason      `json:"-"`
	ExpiryDate          string      `json:"expiryDate,omitempty"`
	DaysLeft            *int        `json:"daysLeft,omitempty"`
	DaysExpired         *int        `json:"daysExpired,omitempty"`
	CustomerName        string      `json:"customerName,omitempty"`
	ShowRenewalReminder bool        `json:"showRenewalReminder,omitempty"`
	DeviceInfo          *DeviceInfo `json:"deviceInfo,omitempty"`
	RegisteredDevices   int         `json:"registeredDevices,omitempty"`
	MaxDevices          int         `json:"maxDevices,omitempty"`
	CurrentDevices      []string    `json:"currentDevices,omitempty"`
	Timestamp           time.Time   `json:"timestamp"`
}

// Validator runs the license validation state machine against the store.
type Validator struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	locks  *keyedMutex
	now    func() time.Time
}

// NewValidator creates a validator. The logger may be nil.
func NewValidator(store Store, cfg Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "validator")),
		locks:  newKeyedMutex(),
		now:    time.Now,
	}
}

// Validate checks a presented license key and binds the presenting device.
// Not read-only: a successful call occupies a free slot or refreshes the
// bound slot's last-used stamp, and persists the record.
func (v *Validator) Validate(ctx context.Context, key, deviceID, deviceName string) *ValidationResult {
	now := v.now()
	key = strings.TrimSpace(key)

	// Slot binding is a read-modify-write; serialize per key so two new
	// devices cannot both claim the same empty slot.
	unlock := v.locks.lock(key)
	defer unlock()

	rec, err := v.store.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrLicenseNotFound) {
			v.logger.InfoContext(ctx, "license key not found",
				slog.String("key", MaskKey(key)))
			return &ValidationResult{
				Message:   "License key not found",
				Status:    "INVALID",
				Reason:    ReasonInvalid,
				Timestamp: now,
			}
		}
		v.logger.ErrorContext(ctx, "store lookup failed",
			slog.String("key", MaskKey(key)),
			slog.String("error", err.Error()))
		return failureResult(err, now)
	}

	if status := NormalizeStatus(rec.Status); status != StatusActive {
		v.logger.InfoContext(ctx, "license not active",
			slog.String("key", MaskKey(key)),
			slog.String("status", status))
		return &ValidationResult{
			Message:   "License is not active",
			Status:    status,
			Reason:    ReasonNotActive,
			Timestamp: now,
		}
	}

	expiry, err := rec.ExpiryDate()
	if err != nil {
		// Data-integrity failure, not a business rejection: the operator has
		// to fix the cell, the customer has done nothing wrong.
		v.logger.WarnContext(ctx, "unparseable expiry date",
			slog.String("key", MaskKey(key)),
			slog.String("expiry_raw", rec.Expiry))
		return &ValidationResult{
			Message:   "Invalid expiry date format in database",
			Status:    "ERROR",
			Reason:    ReasonBadData,
			Timestamp: now,
		}
	}

	today := Midnight(now)
	if today.After(expiry) {
		daysExpired := DaysBetween(expiry, today)
		return &ValidationResult{
			Message:     "License has expired",
			Status:      "EXPIRED",
			Reason:      ReasonExpired,
			ExpiryDate:  FormatDate(expiry),
			DaysExpired: &daysExpired,
			Timestamp:   now,
		}
	}

	bind := rec.Bind(deviceID, deviceName, now)
	if !bind.Allowed {
		return &ValidationResult{
			Message:        bind.Message,
			Status:         "DEVICE_LIMIT_REACHED",
			Reason:         ReasonDeviceLimit,
			MaxDevices:     MaxDevices,
			CurrentDevices: bind.BoundNames,
			Timestamp:      now,
		}
	}

	if err := v.store.Update(ctx, rec); err != nil {
		v.logger.ErrorContext(ctx, "failed to persist device binding",
			slog.String("key", MaskKey(key)),
			slog.Int("slot", bind.Slot),
			slog.String("error", err.Error()))
		return failureResult(err, now)
	}

	daysLeft := DaysBetween(today, expiry)
	v.logger.InfoContext(ctx, "license validated",
		slog.String("key", MaskKey(key)),
		slog.Int("slot", bind.Slot),
		slog.Bool("new_device", bind.NewDevice),
		slog.Int("days_left", daysLeft))

	return &ValidationResult{
		Success:             true,
		Message:             "License is valid",
		Status:              StatusActive,
		Reason:              ReasonOK,
		ExpiryDate:          FormatDate(expiry),
		DaysLeft:            &daysLeft,
		CustomerName:        rec.CustomerName,
		ShowRenewalReminder: daysLeft <= v.cfg.ReminderDays,
		DeviceInfo: &DeviceInfo{
			Slot:      bind.Slot,
			Name:      bind.DeviceName,
			NewDevice: bind.NewDevice,
		},
		RegisteredDevices: bind.DeviceCount,
		Timestamp:         now,
	}
}

// failureResult converts an internal fault into a generic failure result.
// Faults never cross the package boundary as panics or bare errors.
func failureResult(err error, now time.Time) *ValidationResult {
	return &ValidationResult{
		Message:   "Validation error: " + err.Error(),
		Status:    "ERROR",
		Reason:    ReasonError,
		Timestamp: now,
	}
}

// MaskKey hides the middle segments of a license key for logging.
func MaskKey(key string) string {
	if len(key) <= 9 {
		return "****"
	}
	return key[:9] + "-****-****"
}
