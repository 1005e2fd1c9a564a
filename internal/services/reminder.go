package services

import (
	"context"
	"log/slog"
	"time"

	"idmeapi/internal/infrastructure"
	"idmeapi/internal/license"
)

// alertReminderSent marks a record whose reminder email already went out,
// so the daily sweep never mails the same expiry window twice.
const alertReminderSent = "REMINDER_SENT"

// ReminderSender delivers expiry warnings. Satisfied by *mail.Mailer.
type ReminderSender interface {
	SendReminder(ctx context.Context, rec *license.Record, daysLeft int) error
}

// ReminderSweeper walks the license sheet once a day and emails customers
// whose licenses expire within the reminder window.
type ReminderSweeper struct {
	store    license.Store
	sender   ReminderSender
	cfg      license.Config
	logger   *slog.Logger
	metrics  *infrastructure.LicenseMetrics
	interval time.Duration
	now      func() time.Time
}

// NewReminderSweeper creates the sweeper. sender may be nil when mail is
// disabled; the sweeper then does nothing.
func NewReminderSweeper(
	store license.Store,
	sender ReminderSender,
	cfg license.Config,
	logger *slog.Logger,
	metrics *infrastructure.LicenseMetrics,
) *ReminderSweeper {
	return &ReminderSweeper{
		store:    store,
		sender:   sender,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "reminder_sweeper")),
		metrics:  metrics,
		interval: 24 * time.Hour,
		now:      time.Now,
	}
}

// Run sweeps immediately, then on every interval tick until ctx is done.
func (s *ReminderSweeper) Run(ctx context.Context) error {
	if s.sender == nil {
		s.logger.Info("mail disabled, reminder sweep not running")
		<-ctx.Done()
		return nil
	}

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over all records. Errors on individual records are
// logged and skipped; one bad row must not silence reminders for the rest.
func (s *ReminderSweeper) Sweep(ctx context.Context) {
	records, err := s.store.All(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "reminder sweep failed to read records",
			slog.String("error", err.Error()))
		return
	}

	today := license.Midnight(s.now())
	sent := 0

	for i := range records {
		rec := &records[i]
		if !rec.Active() || rec.Alerts == alertReminderSent {
			continue
		}

		expiry, err := rec.ExpiryDate()
		if err != nil {
			s.logger.WarnContext(ctx, "skipping record with unparseable expiry",
				slog.String("key", license.MaskKey(rec.Key)),
				slog.String("expiry_raw", rec.Expiry))
			continue
		}

		daysLeft := license.DaysBetween(today, expiry)
		if daysLeft < 0 || daysLeft > s.cfg.ReminderDays {
			continue
		}

		if err := s.sender.SendReminder(ctx, rec, daysLeft); err != nil {
			s.logger.WarnContext(ctx, "reminder email failed",
				slog.String("key", license.MaskKey(rec.Key)),
				slog.String("error", err.Error()))
			continue
		}

		rec.Alerts = alertReminderSent
		if err := s.store.Update(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "failed to mark reminder sent",
				slog.String("key", license.MaskKey(rec.Key)),
				slog.String("error", err.Error()))
			continue
		}

		sent++
		if s.metrics != nil {
			s.metrics.RemindersSent.Add(ctx, 1)
		}
	}

	s.logger.InfoContext(ctx, "reminder sweep completed",
		slog.Int("records", len(records)),
		slog.Int("reminders_sent", sent))
}
