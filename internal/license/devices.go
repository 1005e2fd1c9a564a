package license

import (
	"fmt"
	"time"
)

// BindResult reports the outcome of presenting a device to a license.
type BindResult struct {
	Allowed     bool
	Slot        int // 1-based slot index when allowed
	DeviceName  string
	NewDevice   bool
	DeviceCount int
	Message     string
	BoundNames  []string
}

// Bind applies the device-slot policy to the record in memory. Checked in
// order, first match wins:
//
//	1. device already bound        -> refresh that slot's last-used stamp
//	2. a slot is free (slot order) -> occupy the first free slot
//	3. all slots taken             -> reject, citing the bound device names
//
// The caller persists the record afterwards; Bind itself never touches the
// store.
func (r *Record) Bind(deviceID, deviceName string, now time.Time) BindResult {
	for i := range r.Devices {
		if r.Devices[i].ID == deviceID {
			r.Devices[i].LastUsed = now
			return BindResult{
				Allowed:     true,
				Slot:        i + 1,
				DeviceName:  r.Devices[i].Name,
				DeviceCount: r.RecountDevices(),
			}
		}
	}

	for i := range r.Devices {
		if !r.Devices[i].Occupied() {
			r.Devices[i] = DeviceSlot{ID: deviceID, Name: deviceName, LastUsed: now}
			return BindResult{
				Allowed:     true,
				Slot:        i + 1,
				DeviceName:  deviceName,
				NewDevice:   true,
				DeviceCount: r.RecountDevices(),
			}
		}
	}

	return BindResult{
		Allowed:     false,
		DeviceCount: r.DeviceCount,
		Message:     fmt.Sprintf("Device limit reached! Maximum %d devices allowed. Please deactivate an old device first.", MaxDevices),
		BoundNames:  r.BoundDeviceNames(),
	}
}

// DeactivateDevice clears the slot holding deviceID and recomputes the
// device count. Reports false when the device is not bound to this license.
func (r *Record) DeactivateDevice(deviceID string) (remaining int, found bool) {
	for i := range r.Devices {
		if r.Devices[i].ID == deviceID {
			r.Devices[i] = DeviceSlot{}
			return r.RecountDevices(), true
		}
	}
	return r.DeviceCount, false
}

// BoundDevice describes one occupied slot for device listings.
type BoundDevice struct {
	Slot     int    `json:"slot"`
	DeviceID string `json:"deviceId"`
	Name     string `json:"deviceName"`
	LastUsed string `json:"lastUsed,omitempty"`
}

// BoundDevices returns the occupied slots in slot order.
func (r *Record) BoundDevices() []BoundDevice {
	out := make([]BoundDevice, 0, MaxDevices)
	for i, s := range r.Devices {
		if !s.Occupied() {
			continue
		}
		d := BoundDevice{Slot: i + 1, DeviceID: s.ID, Name: s.Name}
		if !s.LastUsed.IsZero() {
			d.LastUsed = FormatDateTime(s.LastUsed)
		}
		out = append(out, d)
	}
	return out
}
