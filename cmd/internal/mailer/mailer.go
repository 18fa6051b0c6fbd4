// Package mailer delivers password reset links over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/gomail.v2"

	"github.com/gouveags/moviescore/cmd/internal/auth/account"
)

// Config holds SMTP settings and the frontend page that redeems reset tokens.
type Config struct {
	Host     string `env:"MOVIESCORE_SMTP_HOST"`
	Port     int    `env:"MOVIESCORE_SMTP_PORT" envDefault:"587"`
	Username string `env:"MOVIESCORE_SMTP_USERNAME"`
	Password string `env:"MOVIESCORE_SMTP_PASSWORD"`
	From     string `env:"MOVIESCORE_SMTP_FROM"`

	ResetURL string `env:"MOVIESCORE_RESET_URL" envDefault:"http://localhost:3000/recover"`
}

// LoadConfig parses the mailer config from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("mailer config: %w", err)
	}
	return cfg, nil
}

// Enabled reports whether SMTP delivery is configured at all.
func (c Config) Enabled() bool { return strings.TrimSpace(c.Host) != "" }

func (c Config) validate() error {
	if c.Host == "" {
		return errors.New("missing MOVIESCORE_SMTP_HOST")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("invalid MOVIESCORE_SMTP_PORT")
	}
	if c.From == "" {
		return errors.New("missing MOVIESCORE_SMTP_FROM")
	}
	u, err := url.Parse(c.ResetURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("invalid MOVIESCORE_RESET_URL")
	}
	return nil
}

// Mailer sends reset links. It implements account.ResetSender.
type Mailer struct {
	cfg  Config
	send func(msgs ...*gomail.Message) error
}

var _ account.ResetSender = (*Mailer)(nil)

// Option configures a Mailer.
type Option func(*Mailer)

// WithSender replaces the SMTP dialer (tests, alternative transports).
func WithSender(s gomail.Sender) Option {
	return func(m *Mailer) {
		if s != nil {
			m.send = func(msgs ...*gomail.Message) error { return gomail.Send(s, msgs...) }
		}
	}
}

// New validates cfg and builds a Mailer.
func New(cfg Config, opts ...Option) (*Mailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	m := &Mailer{cfg: cfg, send: dialer.DialAndSend}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// SendPasswordReset mails the reset link for rawToken to the recipient.
func (m *Mailer) SendPasswordReset(ctx context.Context, to account.ResetRecipient, rawToken string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(to.Email) == "" {
		return errors.New("no recipient")
	}

	link, err := m.resetLink(rawToken)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetAddressHeader("To", to.Email, to.DisplayName)
	msg.SetHeader("Subject", "Reset your MovieScore password")
	msg.SetBody("text/plain", resetText(to.DisplayName, link, expiresAt))

	// The SMTP client has no context support; stop waiting once ctx is done.
	errCh := make(chan error, 1)
	go func() { errCh <- m.send(msg) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("send reset mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send reset mail: %w", ctx.Err())
	}
}

func (m *Mailer) resetLink(rawToken string) (string, error) {
	u, err := url.Parse(m.cfg.ResetURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", rawToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func resetText(name, link string, expiresAt time.Time) string {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("Someone asked to reset the password of your MovieScore account.\n")
	fmt.Fprintf(&b, "Open this link before %s to choose a new one:\n\n%s\n\n", expiresAt.UTC().Format(time.RFC1123), link)
	b.WriteString("If it wasn't you, ignore this message. Your password stays the same.\n")
	return b.String()
}
