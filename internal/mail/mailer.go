// Package mail delivers issuance, admin, and renewal reminder emails over
// SMTP. Delivery is best-effort throughout; callers log failures and move
// on rather than failing the triggering operation.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"

	"idmeapi/internal/config"
	"idmeapi/internal/license"
)

// Mailer sends license emails through a plain-auth SMTP relay.
type Mailer struct {
	cfg        config.MailConfig
	licenseCfg license.Config
	logger     *slog.Logger

	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a Mailer. Returns nil when mail is disabled so callers can
// pass the result straight to NewIssuer.
func New(cfg config.MailConfig, licenseCfg license.Config, logger *slog.Logger) *Mailer {
	if !cfg.Enabled {
		return nil
	}
	return &Mailer{
		cfg:        cfg,
		licenseCfg: licenseCfg,
		logger:     logger.With(slog.String("component", "mailer")),
		send:       smtp.SendMail,
	}
}

type customerData struct {
	CustomerName string
	Email        string
	Key          string
	Expiry       string
	TotalPaid    string
	DurationDays int
	ReminderDays int
	MaxDevices   int
	AdminEmail   string
	SupportURL   string
}

type adminData struct {
	CustomerName string
	Email        string
	Phone        string
	Key          string
	TotalPaid    string
	PurchasedAt  string
	ReceiptURL   string
}

type reminderData struct {
	CustomerName string
	Key          string
	Expiry       string
	DaysLeft     int
	AdminEmail   string
}

// NotifyCustomer sends the license key and activation steps to the buyer.
func (m *Mailer) NotifyCustomer(ctx context.Context, rec *license.Record) error {
	data := customerData{
		CustomerName: rec.CustomerName,
		Email:        rec.Email,
		Key:          rec.Key,
		Expiry:       rec.Expiry,
		TotalPaid:    rec.TotalPaid,
		DurationDays: m.licenseCfg.DurationDays,
		ReminderDays: m.licenseCfg.ReminderDays,
		MaxDevices:   license.MaxDevices,
		AdminEmail:   m.licenseCfg.AdminEmail,
		SupportURL:   m.licenseCfg.SupportURL,
	}

	var body bytes.Buffer
	if err := customerTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render customer email: %w", err)
	}
	return m.deliver(ctx, rec.Email, customerSubject, body.Bytes())
}

// NotifyAdmin tells the administrator about a new purchase.
func (m *Mailer) NotifyAdmin(ctx context.Context, rec *license.Record) error {
	if m.licenseCfg.AdminEmail == "" {
		return nil
	}

	data := adminData{
		CustomerName: rec.CustomerName,
		Email:        rec.Email,
		Phone:        rec.Phone,
		Key:          rec.Key,
		TotalPaid:    rec.TotalPaid,
		PurchasedAt:  rec.PurchasedAt,
		ReceiptURL:   rec.ReceiptURL,
	}

	var body bytes.Buffer
	if err := adminTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render admin email: %w", err)
	}
	return m.deliver(ctx, m.licenseCfg.AdminEmail, adminSubject+rec.CustomerName, body.Bytes())
}

// SendReminder warns a customer that the license expires in daysLeft days.
func (m *Mailer) SendReminder(ctx context.Context, rec *license.Record, daysLeft int) error {
	data := reminderData{
		CustomerName: rec.CustomerName,
		Key:          rec.Key,
		Expiry:       rec.Expiry,
		DaysLeft:     daysLeft,
		AdminEmail:   m.licenseCfg.AdminEmail,
	}

	var body bytes.Buffer
	if err := reminderTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render reminder email: %w", err)
	}
	return m.deliver(ctx, rec.Email, reminderSubject, body.Bytes())
}

func (m *Mailer) deliver(ctx context.Context, to, subject string, htmlBody []byte) error {
	if to == "" {
		return fmt.Errorf("empty recipient")
	}

	msg := buildMessage(m.cfg.From, to, subject, htmlBody)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}

	m.logger.InfoContext(ctx, "email sent",
		slog.String("to", to),
		slog.String("subject", subject))
	return nil
}

// buildMessage assembles an RFC 5322 message with an HTML body. Subjects
// are Q-encoded because they contain non-ASCII Malay text.
func buildMessage(from, to, subject string, htmlBody []byte) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.Write(htmlBody)
	return []byte(b.String())
}
