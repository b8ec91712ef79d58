package amqp

import (
	"gopkg.in/gomail.v2"

	"bakehouse/internal/config"
)

type smtpMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewMailer(cfg config.SMTPConfig) Mailer {
	return &smtpMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
