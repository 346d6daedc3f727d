package notifications

import "context"

// PasswordResetInput is the full contract with the mail provider: a recipient
// and a link with the embedded token. Providers never see the raw token.
type PasswordResetInput struct {
	Email    string
	Name     string
	ResetURL string
}

type Mailer interface {
	SendPasswordReset(ctx context.Context, input PasswordResetInput) error
}
