package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/configs"
	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

//go:embed templates/*.html
var templateFS embed.FS

var dispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "email_dispatch_total",
		Help: "Account emails handed to a transport, by transport and outcome.",
	},
	[]string{"transport", "outcome"},
)

func init() {
	prometheus.MustRegister(dispatchTotal)
}

// templateData is what every account email template renders from.
type templateData struct {
	SiteName string
	UserName string
	Link     string
}

// Dispatcher renders account emails and hands them to the primary transport.
// When the primary fails or times out the message goes to the fallback
// transport and the caller gets a Transient error.
type Dispatcher struct {
	primary   ports.MailTransport
	fallback  ports.MailTransport
	templates *template.Template
	siteName  string
	timeout   time.Duration
	logger    *logrus.Logger
}

// NewDispatcher parses the embedded templates. primary may be nil, in which
// case every message goes straight to fallback.
func NewDispatcher(primary, fallback ports.MailTransport, cfg *configs.EmailConfig, logger *logrus.Logger) (*Dispatcher, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		primary:   primary,
		fallback:  fallback,
		templates: tmpl,
		siteName:  cfg.SiteName,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

func (d *Dispatcher) render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func displayName(u *user.User) string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Email
}

func (d *Dispatcher) SendVerificationEmail(ctx context.Context, u *user.User, link string) error {
	data := templateData{SiteName: d.siteName, UserName: displayName(u), Link: link}
	html, err := d.render("verification.html", data)
	if err != nil {
		return err
	}
	return d.deliver(ctx, &ports.MailMessage{
		ToEmail: u.Email,
		ToName:  u.FullName,
		Subject: fmt.Sprintf("Activate your %s account", d.siteName),
		HTML:    html,
		Text:    fmt.Sprintf("Hi %s,\n\nPlease verify your email address by opening this link:\n%s\n", data.UserName, link),
	})
}

func (d *Dispatcher) SendPasswordResetEmail(ctx context.Context, u *user.User, link string) error {
	data := templateData{SiteName: d.siteName, UserName: displayName(u), Link: link}
	html, err := d.render("password_reset.html", data)
	if err != nil {
		return err
	}
	return d.deliver(ctx, &ports.MailMessage{
		ToEmail: u.Email,
		ToName:  u.FullName,
		Subject: fmt.Sprintf("Reset your %s password", d.siteName),
		HTML:    html,
		Text:    fmt.Sprintf("Hi %s,\n\nYou can choose a new password here:\n%s\n", data.UserName, link),
	})
}

func (d *Dispatcher) deliver(ctx context.Context, msg *ports.MailMessage) error {
	if d.primary == nil {
		return d.sendFallback(ctx, msg, nil)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	err := d.primary.Send(sendCtx, msg)
	cancel()
	if err == nil {
		dispatchTotal.WithLabelValues(d.primary.Name(), "sent").Inc()
		return nil
	}

	dispatchTotal.WithLabelValues(d.primary.Name(), "failed").Inc()
	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{
			"transport": d.primary.Name(),
			"to":        msg.ToEmail,
			"subject":   msg.Subject,
		}).WithError(err).Warn("email: primary transport failed, using fallback")
	}
	return d.sendFallback(ctx, msg, err)
}

// sendFallback always reports cause as a Transient error when non-nil: the
// fallback only keeps a record, it does not reach the recipient.
func (d *Dispatcher) sendFallback(ctx context.Context, msg *ports.MailMessage, cause error) error {
	if d.fallback != nil {
		if err := d.fallback.Send(ctx, msg); err != nil {
			dispatchTotal.WithLabelValues(d.fallback.Name(), "failed").Inc()
			if cause == nil {
				cause = err
			}
		} else {
			dispatchTotal.WithLabelValues(d.fallback.Name(), "sent").Inc()
		}
	}
	if cause == nil {
		return nil
	}
	return apperr.Transient(apperr.CodeMailDelivery, cause.Error(), cause)
}

var _ ports.Mailer = (*Dispatcher)(nil)
