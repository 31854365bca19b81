package mail

import (
	"context"
	"fmt"

	"feedmail/internal/config"
)

// Mailer dispatches one composed message to its target.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// DispatchError wraps a transport failure. The orchestrator treats it as
// recoverable per entry unless configured to escalate.
type DispatchError struct {
	Target string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatching to %s: %v", e.Target, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NewMailer picks the transport from the options: SMTP when enabled,
// otherwise the sendmail binary.
func NewMailer(opts config.MailOptions) Mailer {
	if opts.SMTP.Enabled {
		return NewSMTPMailer(opts.SMTP)
	}
	return NewSendmailMailer(opts.Sendmail.Path)
}
