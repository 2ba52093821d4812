package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGrid struct {
	apiKey   string
	from     string
	fromName string
}

func NewSendGrid(apiKey, from, fromName string) *SendGrid {
	return &SendGrid{apiKey: apiKey, from: from, fromName: fromName}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(s.fromName, s.from)
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	response, err := sendgrid.NewSendClient(s.apiKey).SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid returned error status: %d", response.StatusCode)
	}
	return nil
}
