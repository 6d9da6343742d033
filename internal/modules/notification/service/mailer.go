package service

import (
	"context"

	"gopkg.in/gomail.v2"
)

// Mailer sends a single plain notification email. Send gives up when ctx is done.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
}

type smtpMailer struct {
	cfg    MailConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg MailConfig) Mailer {
	return &smtpMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	// gomail has no context support; an abandoned send finishes on its own.
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
