package license

import (
	"context"
	"log/slog"
	"strings"

	apperrors "idmeapi/internal/errors"
)

// Deactivate releases the slot binding deviceID on a license, freeing it
// for another device. Shares the per-key lock with Validate so a release
// and a concurrent bind cannot interleave on the same record.
func (v *Validator) Deactivate(ctx context.Context, key, deviceID string) (remaining int, err error) {
	key = strings.TrimSpace(key)

	unlock := v.locks.lock(key)
	defer unlock()

	rec, err := v.store.FindByKey(ctx, key)
	if err != nil {
		return 0, err
	}

	remaining, found := rec.DeactivateDevice(deviceID)
	if !found {
		return remaining, apperrors.ErrDeviceNotFound
	}

	if err := v.store.Update(ctx, rec); err != nil {
		return 0, err
	}

	v.logger.InfoContext(ctx, "device deactivated",
		slog.String("key", MaskKey(key)),
		slog.Int("remaining", remaining))
	return remaining, nil
}

// Devices lists the occupied slots on a license.
func (v *Validator) Devices(ctx context.Context, key string) ([]BoundDevice, error) {
	rec, err := v.store.FindByKey(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, err
	}
	return rec.BoundDevices(), nil
}
