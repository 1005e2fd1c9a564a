package mail

import (
	"context"
	"io"
	"log/slog"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmeapi/internal/config"
	"idmeapi/internal/license"
)

func testMailer(t *testing.T) (*Mailer, *capturedSend) {
	t.Helper()
	captured := &capturedSend{}
	m := New(
		config.MailConfig{
			Enabled: true,
			Host:    "smtp.example.com",
			Port:    587,
			From:    "noreply@example.com",
		},
		license.Config{
			DurationDays: 30,
			ReminderDays: 3,
			PriceRM:      10,
			AdminEmail:   "admin@example.com",
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NotNil(t, m)
	m.send = captured.send
	return m, captured
}

type capturedSend struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func (c *capturedSend) send(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
	c.addr = addr
	c.from = from
	c.to = to
	c.msg = msg
	return nil
}

func sampleRecord() *license.Record {
	return &license.Record{
		Key:          "IDME-BA9P-L6Q9-GUNV",
		CustomerName: "Aisyah Rahman",
		Phone:        "0123456789",
		Email:        "aisyah@example.com",
		Expiry:       "15/09/2026",
		Status:       "ACTIVE",
		TotalPaid:    "RM10",
		ReceiptURL:   "https://pay.example.com/r/123",
		PurchasedAt:  "15/08/2026 10:30:00",
	}
}

func TestNewDisabled(t *testing.T) {
	m := New(config.MailConfig{Enabled: false}, license.Config{}, slog.Default())
	assert.Nil(t, m)
}

func TestNotifyCustomer(t *testing.T) {
	m, captured := testMailer(t)

	err := m.NotifyCustomer(context.Background(), sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", captured.addr)
	assert.Equal(t, []string{"aisyah@example.com"}, captured.to)

	body := string(captured.msg)
	assert.Contains(t, body, "IDME-BA9P-L6Q9-GUNV")
	assert.Contains(t, body, "Tahniah Aisyah Rahman!")
	assert.Contains(t, body, "15/09/2026")
	assert.Contains(t, body, "Content-Type: text/html")
}

func TestNotifyAdmin(t *testing.T) {
	t.Run("sends to admin address", func(t *testing.T) {
		m, captured := testMailer(t)

		err := m.NotifyAdmin(context.Background(), sampleRecord())
		require.NoError(t, err)

		assert.Equal(t, []string{"admin@example.com"}, captured.to)
		assert.Contains(t, string(captured.msg), "0123456789")
		assert.Contains(t, string(captured.msg), "https://pay.example.com/r/123")
	})

	t.Run("no-op without admin address", func(t *testing.T) {
		m, captured := testMailer(t)
		m.licenseCfg.AdminEmail = ""

		err := m.NotifyAdmin(context.Background(), sampleRecord())
		require.NoError(t, err)
		assert.Nil(t, captured.to)
	})
}

func TestSendReminder(t *testing.T) {
	m, captured := testMailer(t)

	err := m.SendReminder(context.Background(), sampleRecord(), 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"aisyah@example.com"}, captured.to)
	body := string(captured.msg)
	assert.Contains(t, body, "3 hari")
	assert.Contains(t, body, "15/09/2026")
}

func TestDeliverEmptyRecipient(t *testing.T) {
	m, _ := testMailer(t)
	rec := sampleRecord()
	rec.Email = ""

	err := m.NotifyCustomer(context.Background(), rec)
	assert.Error(t, err)
}
