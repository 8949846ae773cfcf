package ports

import (
	"context"

	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
)

// MailMessage is a rendered email ready for a transport.
type MailMessage struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// MailTransport delivers a rendered message. Implementations must honour ctx deadlines.
type MailTransport interface {
	Name() string
	Send(ctx context.Context, msg *MailMessage) error
}

// Mailer renders and dispatches account emails.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, u *user.User, link string) error
	SendPasswordResetEmail(ctx context.Context, u *user.User, link string) error
}
