package license

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Extend pushes a license's expiry forward by the given number of months and
// reactivates it. The extension is anchored on the current expiry when the
// license is still running, or on today when it has already lapsed, so a
// renewal never shortens the remaining validity.
func (i *Issuer) Extend(ctx context.Context, key string, months int) (*Record, error) {
	if months < 1 {
		return nil, fmt.Errorf("renewal months must be positive, got %d", months)
	}

	rec, err := i.store.FindByKey(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, err
	}

	today := Midnight(i.now())
	base := today
	if expiry, err := rec.ExpiryDate(); err == nil && expiry.After(today) {
		base = expiry
	}

	rec.Expiry = FormatDate(base.AddDate(0, months, 0))
	rec.Status = StatusActive
	rec.LastRenewed = FormatDate(today)
	rec.TotalPaid = addPayment(rec.TotalPaid, i.cfg.PriceRM*months)
	rec.Alerts = ""

	if err := i.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist renewal: %w", err)
	}

	i.logger.InfoContext(ctx, "license extended",
		slog.String("key", MaskKey(rec.Key)),
		slog.Int("months", months),
		slog.String("new_expiry", rec.Expiry))

	return rec, nil
}

// addPayment adds amount (RM) to a running "RM<n>" total. Unparseable cells
// are treated as zero rather than blocking the renewal.
func addPayment(total string, amount int) string {
	current, _ := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(total), "RM"))
	return fmt.Sprintf("RM%d", current+amount)
}
