package mailer

import (
	"context"
	"log/slog"
	"sync"
)

// Log writes mail to the logger instead of sending it. Used when SMTP is
// not configured, so verification links can be copied from the console.
type Log struct {
	log *slog.Logger
}

func NewLog(l *slog.Logger) *Log {
	if l == nil {
		l = slog.Default()
	}
	return &Log{log: l}
}

func (m *Log) SendVerification(ctx context.Context, to, name, link string) error {
	msg, err := VerificationMessage(to, name, link)
	if err != nil {
		return err
	}
	m.log.InfoContext(ctx, "mail not sent, smtp disabled", "to", to, "subject", msg.Subject, "link", link)
	return nil
}

func (m *Log) SendWelcome(ctx context.Context, to, name string) error {
	msg, err := WelcomeMessage(to, name)
	if err != nil {
		return err
	}
	m.log.InfoContext(ctx, "mail not sent, smtp disabled", "to", to, "subject", msg.Subject)
	return nil
}

// Memory keeps rendered messages for inspection in tests.
type Memory struct {
	mu   sync.Mutex
	sent []Message
}

func (m *Memory) SendVerification(_ context.Context, to, name, link string) error {
	msg, err := VerificationMessage(to, name, link)
	if err != nil {
		return err
	}
	m.record(msg)
	return nil
}

func (m *Memory) SendWelcome(_ context.Context, to, name string) error {
	msg, err := WelcomeMessage(to, name)
	if err != nil {
		return err
	}
	m.record(msg)
	return nil
}

func (m *Memory) record(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

func (m *Memory) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
