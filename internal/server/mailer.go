package server

import (
	"net/smtp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"agrisense/backend/internal/config"
)

// Mailer delivers notification mail. Sends are fire-and-forget: callers log
// failures and move on, they never surface to the HTTP response.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	host     string
	port     string
	from     string
	password string
}

func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:     strings.TrimSpace(cfg.SMTPHost),
		port:     strings.TrimSpace(cfg.SMTPPort),
		from:     strings.TrimSpace(cfg.EmailAddress),
		password: cfg.EmailPassword,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	message := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", m.from, m.password, m.host)
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, []byte(message))
}

// sendMail delivers one message and logs the outcome. Delivery failure after
// a committed insert is accepted behavior, not rolled back.
func (a *App) sendMail(to, subject, body string) {
	if err := a.mail.Send(to, subject, body); err != nil {
		a.log.Error("email send failed", zap.String("to", to), zap.Error(err))
		return
	}
	a.log.Debug("email sent", zap.String("to", to))
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// MockMailer records sends for tests.
type MockMailer struct {
	Err error

	mu   sync.Mutex
	Sent []sentMail
}

func (m *MockMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MockMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
