// File: internal/infra/receipt/sendgrid_mailer.go
package receipt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"learnhub-checkout/internal/config"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/infra/logging"
)

var _ adapter.ReceiptMailer = (*SendGridMailer)(nil)

type SendGridMailer struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
	log      *zerolog.Logger
}

// NewSendGridMailer returns nil when no API key is configured; callers treat
// a nil mailer as "do not email".
func NewSendGridMailer(cfg *config.ReceiptConfig, logger *zerolog.Logger) *SendGridMailer {
	if cfg.SendGridAPIKey == "" || cfg.FromEmail == "" {
		return nil
	}
	return newSendGridMailer(sendgrid.NewSendClient(cfg.SendGridAPIKey), cfg, logger)
}

func newSendGridMailer(client *sendgrid.Client, cfg *config.ReceiptConfig, logger *zerolog.Logger) *SendGridMailer {
	l := logger.With().Str("component", "receipt_mailer").Logger()
	name := cfg.FromName
	if name == "" {
		name = cfg.IssuerName
	}
	return &SendGridMailer{client: client, fromName: name, fromAddr: cfg.FromEmail, log: &l}
}

func (m *SendGridMailer) Send(ctx context.Context, r *model.Receipt) error {
	if r.Facts.PayerEmail == "" {
		return errors.New("receipt has no payer email")
	}
	from := mail.NewEmail(m.fromName, m.fromAddr)
	to := mail.NewEmail(r.Facts.PayerName, r.Facts.PayerEmail)
	subject := fmt.Sprintf("Your receipt for %s", r.Facts.CourseTitle)
	amount := model.FormatMoney(r.Facts.Amount, r.Facts.Currency)
	plain := fmt.Sprintf("Hi %s,\n\nWe received your payment of %s for %s (%s).\nYour receipt %s is attached.\n",
		r.Facts.PayerName, amount, r.Facts.CourseTitle, r.Facts.PlanLabel, r.Facts.Number)
	html := fmt.Sprintf("<p>Hi %s,</p><p>We received your payment of <strong>%s</strong> for %s (%s).</p><p>Your receipt <code>%s</code> is attached.</p>",
		r.Facts.PayerName, amount, r.Facts.CourseTitle, r.Facts.PlanLabel, r.Facts.Number)

	msg := mail.NewSingleEmail(from, subject, to, plain, html)
	att := mail.NewAttachment()
	att.SetContent(base64.StdEncoding.EncodeToString(r.Document))
	att.SetType(r.ContentType)
	att.SetFilename(r.FileName())
	att.SetDisposition("attachment")
	msg.AddAttachment(att)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	m.log.Debug().Str("receipt_id", r.ID).Str("to", logging.Redact(r.Facts.PayerEmail, false)).Int("status", resp.StatusCode).Msg("receipt emailed")
	return nil
}
