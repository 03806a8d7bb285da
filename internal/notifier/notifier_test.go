package notifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestLoggerServiceReportsNotImplemented(t *testing.T) {
	var buf bytes.Buffer
	svc := NewLoggerService(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := svc.SendEmail(context.Background(), EmailRequest{To: "a@example.com", Subject: "Hi", Kind: "ORDER_PLACED"})
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.Contains(t, buf.String(), "ORDER_PLACED")
}

func TestLoggerServiceValidates(t *testing.T) {
	err := NewLoggerService(nil).SendEmail(context.Background(), EmailRequest{Subject: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotImplemented))
}

func TestSMTPServiceBuildsMessage(t *testing.T) {
	svc, err := NewSMTPService(SMTPOptions{Host: "smtp.example.com", From: "shop@example.com"})
	require.NoError(t, err)

	var captured *mail.Msg
	svc.dial = func(_ context.Context, msg *mail.Msg) error {
		captured = msg
		return nil
	}

	err = svc.SendEmail(context.Background(), EmailRequest{To: "buyer@example.com", Subject: "Order Confirmed", Body: "thanks", HTML: "<p>thanks</p>"})
	require.NoError(t, err)
	require.NotNil(t, captured)

	var out bytes.Buffer
	_, err = captured.WriteTo(&out)
	require.NoError(t, err)
	raw := out.String()
	assert.Contains(t, raw, "buyer@example.com")
	assert.Contains(t, raw, "Order Confirmed")
	assert.True(t, strings.Contains(raw, "text/html"))
}

func TestNewSMTPServiceRequiresHost(t *testing.T) {
	_, err := NewSMTPService(SMTPOptions{From: "x@example.com"})
	assert.Error(t, err)
}
