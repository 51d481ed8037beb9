package notifier

import (
	"gopkg.in/gomail.v2"
)

// SMTPMailer sends plain-text mail through a configured SMTP relay.
// When no host is configured the mailer reports itself disabled and
// the dispatcher skips the email leg entirely; the portal keeps
// working without a mail server.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewSMTPMailer builds a mailer from config values.  An empty host
// yields a disabled mailer.
func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Enabled reports whether an SMTP relay is configured.
func (m *SMTPMailer) Enabled() bool { return m != nil && m.host != "" }

// Send delivers one message.  A fresh dialer per send keeps the mailer
// stateless; volume here is a handful of messages per workflow action.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	return d.DialAndSend(msg)
}
