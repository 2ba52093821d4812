// Package mail delivers transactional email.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/oggyb/ffm-club/internal/config"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the mailer selected by cfg.Mail.Provider.
func New(cfg *config.Config, log *slog.Logger) (Mailer, error) {
	switch cfg.Mail.Provider {
	case "sendgrid":
		return NewSendGrid(cfg.Mail.SendGridAPIKey, cfg.Mail.From, cfg.Mail.FromName), nil
	case "mock", "":
		return NewMock(log), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
}

var resetTemplate = template.Must(template.New("reset").Parse(`<!doctype html>
<html>
<body style="font-family: sans-serif">
  <h2>Reset your FFM Club password</h2>
  <p>Someone asked to reset the password for {{.Email}}.</p>
  <p><a href="{{.Link}}">Choose a new password</a></p>
  <p>The link expires in {{.ExpiresIn}}. If you did not ask for this, ignore this email.</p>
</body>
</html>`))

// PasswordReset renders the reset email for a recipient.
func PasswordReset(to, link string, expiresIn time.Duration) (Message, error) {
	data := struct {
		Email     string
		Link      string
		ExpiresIn string
	}{to, link, expiresIn.String()}

	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render reset email: %w", err)
	}
	return Message{
		To:      to,
		Subject: "Reset your FFM Club password",
		Text:    fmt.Sprintf("Reset your password: %s\n\nThis link expires in %s.", link, data.ExpiresIn),
		HTML:    body.String(),
	}, nil
}

// Mock records messages in memory and logs them. Used in development and tests.
type Mock struct {
	log *slog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewMock(log *slog.Logger) *Mock {
	return &Mock{log: log}
}

func (m *Mock) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.log != nil {
		m.log.Info("mock email", "to", msg.To, "subject", msg.Subject)
	}
	return nil
}

// Sent returns a copy of every recorded message.
func (m *Mock) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
