package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

var (
	_ Mailer = (*SMTP)(nil)
	_ Mailer = (*Log)(nil)
	_ Mailer = (*Memory)(nil)
)

func TestSMTPSendsVerification(t *testing.T) {
	s, err := NewSMTP(SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 587, s.cfg.Port)
	assert.Equal(t, defaultSMTPTimeout, s.cfg.Timeout)

	var raw bytes.Buffer
	var rcpts []string
	s.send = func(_ context.Context, m *mail.Msg) error {
		var err error
		if rcpts, err = m.GetRecipients(); err != nil {
			return err
		}
		_, err = m.WriteTo(&raw)
		return err
	}
	s.now = func() time.Time { return time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, s.SendVerification(context.Background(), "asha@example.com", "Asha", "https://ff.example/api/auth/verify/abc"))

	assert.Equal(t, []string{"asha@example.com"}, rcpts)
	msg := raw.String()
	assert.Contains(t, msg, "Subject: Verify your FieldFusion account\r\n")
	assert.Contains(t, msg, "bot@example.com")
	assert.Contains(t, msg, "Date: Sat, 21 Jun 2025 10:00:00 +0000\r\n")
	assert.Contains(t, msg, "Message-ID: <")
	assert.Contains(t, msg, "Hi Asha,")
	assert.Contains(t, msg, "https://ff.example/api/auth/verify/abc")
}

func TestSMTPErrors(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{})
	assert.Error(t, err)
	_, err = NewSMTP(SMTPConfig{Host: "localhost", From: "nobody"})
	assert.Error(t, err)

	s, err := NewSMTP(SMTPConfig{Host: "localhost", Port: 2525, From: "ff@example.com"})
	require.NoError(t, err)
	s.send = func(context.Context, *mail.Msg) error { return errors.New("421 try later") }
	err = s.SendWelcome(context.Background(), "asha@example.com", "Asha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "421 try later")

	err = s.SendWelcome(context.Background(), "not an address", "Asha")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SendWelcome(ctx, "asha@example.com", "Asha"), context.Canceled)
}

// A server that accepts and never sends its greeting must not hold the caller
// past its deadline.
func TestSMTPStalledServerHonoursContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	addr := ln.Addr().(*net.TCPAddr)
	s, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: addr.Port, From: "ff@example.com", Timeout: 30 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = s.SendVerification(ctx, "asha@example.com", "Asha", "http://l")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTemplates(t *testing.T) {
	v, err := VerificationMessage("x@example.com", "", "http://l")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(v.Body, "Hi there,"))

	w, err := WelcomeMessage("x@example.com", "Ravi")
	require.NoError(t, err)
	assert.Equal(t, "Welcome to FieldFusion", w.Subject)
	assert.Contains(t, w.Body, "Hi Ravi,")
}

func TestLogAndMemory(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, l.SendVerification(context.Background(), "a@b.io", "A", "http://link/tok"))
	assert.Contains(t, buf.String(), "link=http://link/tok")

	var m Memory
	require.NoError(t, m.SendVerification(context.Background(), "a@b.io", "A", "http://link/tok"))
	require.NoError(t, m.SendWelcome(context.Background(), "a@b.io", "A"))
	sent := m.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Welcome to FieldFusion", sent[1].Subject)
}
