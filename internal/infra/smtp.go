package infra

import (
	"fmt"
	"net/smtp"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends operator alert mails (dropped sync operations, low stock).
// Construct with NewMailer; a nil-host config yields Enabled() == false and
// callers fall back to log-only notification.
type Mailer struct {
	host string
	port int
	user string
	pass string
	to   string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPassword,
		to:   cfg.AlertEmail,
	}
}

func (m *Mailer) Enabled() bool {
	return m.host != "" && m.to != ""
}

// SendAlert delivers a plain-text alert to the configured operator address.
func (m *Mailer) SendAlert(subject, body string) error {
	if !m.Enabled() {
		return fmt.Errorf("smtp not configured")
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{m.to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	return e.Send(addr, smtp.PlainAuth("", m.user, m.pass, m.host))
}
