package license

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Notifier sends the issuance and admin emails. Delivery is best-effort;
// failures are logged and never fail the purchase.
type Notifier interface {
	NotifyCustomer(ctx context.Context, rec *Record) error
	NotifyAdmin(ctx context.Context, rec *Record) error
}

// IssueRequest carries a purchase-form submission.
type IssueRequest struct {
	FullName    string
	Email       string
	Phone       string
	ReceiptURL  string
	PurchasedAt time.Time
}

// Issuance is the outcome of a successful purchase.
type Issuance struct {
	Key        string
	ExpiryDate string // canonical DD/MM/YYYY
	Record     *Record
}

// Issuer creates new license records from purchases and handles
// administrative renewal.
type Issuer struct {
	store    Store
	gen      *KeyGenerator
	cfg      Config
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewIssuer creates an issuer. notifier may be nil to disable email.
func NewIssuer(store Store, gen *KeyGenerator, cfg Config, notifier Notifier, logger *slog.Logger) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Issuer{
		store:    store,
		gen:      gen,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "issuer")),
		now:      time.Now,
	}
}

// Issue generates a unique key, appends the record with a full validity
// period, and sends the customer and admin emails.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (*Issuance, error) {
	key, err := i.gen.Generate(ctx)
	if err != nil {
		return nil, err
	}

	today := Midnight(i.now())
	expiry := today.AddDate(0, 0, i.cfg.DurationDays)

	purchasedAt := req.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = i.now()
	}

	rec := &Record{
		Key:          key,
		CustomerName: req.FullName,
		Phone:        req.Phone,
		Email:        req.Email,
		Expiry:       FormatDate(expiry),
		Status:       StatusActive,
		Created:      FormatDate(today),
		LastRenewed:  FormatDate(today),
		TotalPaid:    fmt.Sprintf("RM%d", i.cfg.PriceRM),
		ReceiptURL:   req.ReceiptURL,
		PurchasedAt:  FormatDateTime(purchasedAt),
	}

	if err := i.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append license record: %w", err)
	}

	i.logger.InfoContext(ctx, "license issued",
		slog.String("key", MaskKey(key)),
		slog.String("expiry", rec.Expiry),
		slog.String("customer_email", req.Email))

	if i.notifier != nil {
		if err := i.notifier.NotifyCustomer(ctx, rec); err != nil {
			i.logger.WarnContext(ctx, "customer email failed",
				slog.String("key", MaskKey(key)),
				slog.String("error", err.Error()))
		}
		if err := i.notifier.NotifyAdmin(ctx, rec); err != nil {
			i.logger.WarnContext(ctx, "admin notification failed",
				slog.String("key", MaskKey(key)),
				slog.String("error", err.Error()))
		}
	}

	return &Issuance{Key: key, ExpiryDate: rec.Expiry, Record: rec}, nil
}
