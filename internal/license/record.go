package license

import (
	"context"
	"time"
)

// MaxDevices is the fixed number of device slots per license.
const MaxDevices = 3

// StatusActive is the only status value that grants validity, compared after
// NormalizeStatus.
const StatusActive = "ACTIVE"

// DeviceSlot is one of the three fixed binding positions on a license.
// An empty ID means the slot is free.
type DeviceSlot struct {
	ID       string    `json:"device_id"`
	Name     string    `json:"device_name"`
	LastUsed time.Time `json:"last_used,omitempty"`
}

// Occupied reports whether the slot holds a device.
func (s DeviceSlot) Occupied() bool {
	return s.ID != ""
}

// Record is one issued license. Dates that originate from manual sheet entry
// (Expiry, Created, LastRenewed) are kept raw and normalized on use; writes
// always store the canonical DD/MM/YYYY form.
type Record struct {
	Key          string
	CustomerName string
	Phone        string
	Email        string
	Expiry       string
	Status       string
	Created      string
	LastRenewed  string
	TotalPaid    string
	Devices      [MaxDevices]DeviceSlot
	DeviceCount  int
	Alerts       string
	ReceiptURL   string
	PurchasedAt  string
}

// ExpiryDate parses the raw expiry cell. Fails with ErrInvalidDateFormat
// when the cell content matches no known date form.
func (r *Record) ExpiryDate() (time.Time, error) {
	return ParseDate(r.Expiry)
}

// Active reports whether the normalized status grants validity.
func (r *Record) Active() bool {
	return NormalizeStatus(r.Status) == StatusActive
}

// RecountDevices recomputes the cached device count from the slots and
// returns it. Every slot mutation goes through this so DeviceCount never
// drifts from the slot contents.
func (r *Record) RecountDevices() int {
	n := 0
	for _, s := range r.Devices {
		if s.Occupied() {
			n++
		}
	}
	r.DeviceCount = n
	return n
}

// BoundDeviceNames returns the names of all occupied slots in slot order.
func (r *Record) BoundDeviceNames() []string {
	names := make([]string, 0, MaxDevices)
	for _, s := range r.Devices {
		if s.Occupied() {
			names = append(names, s.Name)
		}
	}
	return names
}

// Store is the record store contract the core depends on. The production
// implementation is backed by a Google Sheet (internal/sheetstore); tests use
// in-memory fakes. Identity is the license key throughout; row position is a
// storage concern invisible to this package.
type Store interface {
	// FindByKey returns the record for a key, or apperrors.ErrLicenseNotFound.
	FindByKey(ctx context.Context, key string) (*Record, error)
	// Update persists all fields of an existing record, last writer wins.
	Update(ctx context.Context, rec *Record) error
	// Append adds a new record.
	Append(ctx context.Context, rec *Record) error
	// KeyExists reports whether a key is already issued.
	KeyExists(ctx context.Context, key string) (bool, error)
	// All returns every record, used by batch reporting and the reminder sweep.
	All(ctx context.Context) ([]Record, error)
}
