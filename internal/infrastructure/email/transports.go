package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

// SendGridTransport delivers mail through the SendGrid v3 API.
type SendGridTransport struct {
	client   *sendgrid.Client
	fromName string
	from     string
}

func NewSendGridTransport(apiKey, fromEmail, fromName string) *SendGridTransport {
	return &SendGridTransport{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		from:     fromEmail,
	}
}

func (t *SendGridTransport) Name() string { return "sendgrid" }

func (t *SendGridTransport) Send(ctx context.Context, msg *ports.MailMessage) error {
	from := mail.NewEmail(t.fromName, t.from)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	response, err := t.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected message: status %d", response.StatusCode)
	}
	return nil
}

// LogTransport records that a message was due instead of sending it. It backs
// local development and the fallback path. Bodies carry live links, so they
// are only written at Debug and only when showBody is set.
type LogTransport struct {
	logger   *logrus.Logger
	showBody bool
}

func NewLogTransport(logger *logrus.Logger, showBody bool) *LogTransport {
	return &LogTransport{logger: logger, showBody: showBody}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Send(_ context.Context, msg *ports.MailMessage) error {
	if t.logger == nil {
		return nil
	}
	entry := t.logger.WithFields(logrus.Fields{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	})
	entry.Info("email: message not delivered, logged instead")
	if t.showBody {
		entry.Debug(msg.Text)
	}
	return nil
}

var (
	_ ports.MailTransport = (*SendGridTransport)(nil)
	_ ports.MailTransport = (*LogTransport)(nil)
)
