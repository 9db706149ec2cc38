package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 10 * time.Second

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTP delivers through a submission server. STARTTLS is used whenever the
// server offers it.
type SMTP struct {
	cfg  SMTPConfig
	send func(ctx context.Context, m *mail.Msg) error
	now  func() time.Time
}

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if !strings.Contains(cfg.From, "@") {
		return nil, fmt.Errorf("smtp from address %q is invalid", cfg.From)
	}
	s := &SMTP{cfg: cfg, now: time.Now}
	s.send = s.dialAndSend
	return s, nil
}

func (s *SMTP) SendVerification(ctx context.Context, to, name, link string) error {
	msg, err := VerificationMessage(to, name, link)
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg)
}

func (s *SMTP) SendWelcome(ctx context.Context, to, name string) error {
	msg, err := WelcomeMessage(to, name)
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg)
}

func (s *SMTP) message(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDateWithValue(s.now())
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func (s *SMTP) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return mail.NewClient(s.cfg.Host, opts...)
}

func (s *SMTP) dialAndSend(ctx context.Context, m *mail.Msg) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}

// deliver returns as soon as ctx is done. A session already in flight is
// left to hit the client timeout.
func (s *SMTP) deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.message(msg)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- s.send(ctx, m) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	}
}
