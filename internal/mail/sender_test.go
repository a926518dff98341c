package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_Message(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25, From: "no-reply@example.com"})

	msg, err := s.Message("bob@example.com", "reset", `<a href="x">reset password</a>`)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "bob@example.com")
	assert.Contains(t, raw, "Subject: reset")
	assert.Contains(t, raw, "text/html")
}

func TestSMTPSender_InvalidAddresses(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25, From: "not an address"})
	_, err := s.Message("bob@example.com", "s", "b")
	assert.Error(t, err)

	s = NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25, From: "no-reply@example.com"})
	_, err = s.Message("", "s", "b")
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	require.NoError(t, NewLogSender(logger).Send(context.Background(), "bob@example.com", "reset", "<b>hi</b>"))

	out := buf.String()
	assert.True(t, strings.Contains(out, "bob@example.com"))
	assert.Contains(t, out, "reset")
}

func TestLogSender_BodyOnlyAtDebug(t *testing.T) {
	const html = `<a href="http://localhost:3000/change-password/SECRETTOKEN">reset password</a>`

	var info bytes.Buffer
	infoLogger := slog.New(slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}))
	require.NoError(t, NewLogSender(infoLogger).Send(context.Background(), "bob@example.com", "Change password", html))

	assert.Contains(t, info.String(), "bob@example.com")
	assert.Contains(t, info.String(), "Change password")
	assert.NotContains(t, info.String(), "SECRETTOKEN")

	var debug bytes.Buffer
	debugLogger := slog.New(slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}))
	require.NoError(t, NewLogSender(debugLogger).Send(context.Background(), "bob@example.com", "Change password", html))

	assert.Contains(t, debug.String(), "SECRETTOKEN")
}
