package notifications

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

const resetSubject = "Password Reset Request"

type MailgunMailer struct {
	mg     mailgun.Mailgun
	domain string
	from   string
}

func NewMailgunMailer(domain, apiKey, from string) *MailgunMailer {
	if from == "" {
		from = "noreply@" + domain
	}

	return &MailgunMailer{
		mg:     mailgun.NewMailgun(domain, apiKey),
		domain: domain,
		from:   from,
	}
}

func (m *MailgunMailer) SendPasswordReset(ctx context.Context, in PasswordResetInput) error {
	msg := mailgun.NewMessage(m.from, resetSubject, resetPlainBody(in), in.Email)
	msg.SetHtml(resetHTMLBody(in))

	_, _, err := m.mg.Send(ctx, msg)

	if err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}

	return nil
}

func resetPlainBody(in PasswordResetInput) string {
	return fmt.Sprintf(
		"Hello,\n\nYou requested a password reset for your account."+
			" Open the link below to choose a new password:\n\n%s\n\n"+
			"This link expires in 1 hour. If you did not request a reset,"+
			" ignore this email and your password stays unchanged.\n",
		in.ResetURL,
	)
}

func resetHTMLBody(in PasswordResetInput) string {
	return fmt.Sprintf(
		`<p>Hello,</p>
<p>You requested a password reset for your account. Click the link below to choose a new password:</p>
<p><a href="%s">Reset Password</a></p>
<p>This link expires in 1 hour. If you did not request a reset, ignore this email and your password stays unchanged.</p>`,
		in.ResetURL,
	)
}
