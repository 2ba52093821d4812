package mail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ffm-club/internal/config"
	"github.com/oggyb/ffm-club/internal/logger"
)

func TestPasswordResetMessage(t *testing.T) {
	msg, err := PasswordReset("a@example.com", "https://ffm.club/reset?token=abc&x=<y>", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", msg.To)
	assert.Contains(t, msg.Text, "https://ffm.club/reset?token=abc")
	assert.Contains(t, msg.HTML, "a@example.com")
	assert.NotContains(t, msg.HTML, "<y>")
}

func TestMockRecords(t *testing.T) {
	m := NewMock(logger.Discard())
	require.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "hi"}))

	sent := m.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hi", sent[0].Subject)
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.New()
	cfg.Mail.Provider = "sendgrid"
	cfg.Mail.SendGridAPIKey = "key"
	m, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &SendGrid{}, m)

	cfg.Mail.Provider = "pigeon"
	_, err = New(cfg, logger.Discard())
	assert.Error(t, err)
}
