package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"feedmail/internal/config"
)

// SMTPMailer delivers messages through an SMTP relay. With ssl it speaks
// TLS from the first byte; otherwise it upgrades via STARTTLS when the
// server offers it.
type SMTPMailer struct {
	opts config.SMTPOptions
}

func NewSMTPMailer(opts config.SMTPOptions) *SMTPMailer {
	return &SMTPMailer{opts: opts}
}

func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if err := m.send(ctx, msg); err != nil {
		return &DispatchError{Target: msg.To, Err: err}
	}
	return nil
}

func (m *SMTPMailer) send(ctx context.Context, msg *Message) error {
	addr := net.JoinHostPort(m.opts.Host, fmt.Sprintf("%d", m.opts.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if m.opts.SSL {
		conn = tls.Client(conn, &tls.Config{ServerName: m.opts.Host})
	}

	client, err := smtp.NewClient(conn, m.opts.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if !m.opts.SSL {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.opts.Host}); err != nil {
				return err
			}
		}
	}

	if m.opts.Username != "" {
		auth := smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(msg.envelopeFrom()); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg.Render()); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
