package mail

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// SendmailMailer pipes messages to a local sendmail-compatible binary.
type SendmailMailer struct {
	path string
}

func NewSendmailMailer(path string) *SendmailMailer {
	return &SendmailMailer{path: path}
}

func (m *SendmailMailer) Send(ctx context.Context, msg *Message) error {
	cmd := exec.CommandContext(ctx, m.path, "-oi", "-f", msg.envelopeFrom(), msg.To)
	cmd.Stdin = bytes.NewReader(msg.Render())

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, stderr.String())
		}
		return &DispatchError{Target: msg.To, Err: err}
	}
	return nil
}
