package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/emberleaf/backoffice/internal/models"
)

// Sender dispatches transactional mail. The contact flow treats it as
// fire-and-forget: failures are logged by the caller, never surfaced to
// the visitor.
type Sender interface {
	SendContactNotification(sub *models.ContactSubmission) error
	SendContactConfirmation(sub *models.ContactSubmission) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	NotifyTo string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != "" && c.NotifyTo != ""
}

type SMTPSender struct {
	cfg SMTPConfig
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// SendContactNotification mails the shop inbox about a new submission.
func (s *SMTPSender) SendContactNotification(sub *models.ContactSubmission) error {
	subject := "New contact form submission: " + sub.Subject
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\r\n", sub.Name)
	fmt.Fprintf(&b, "Email: %s\r\n", sub.Email)
	if sub.Phone != nil {
		fmt.Fprintf(&b, "Phone: %s\r\n", *sub.Phone)
	}
	fmt.Fprintf(&b, "\r\n%s\r\n", sub.Message)
	return s.send(s.cfg.NotifyTo, subject, b.String())
}

// SendContactConfirmation acknowledges receipt to the visitor.
func (s *SMTPSender) SendContactConfirmation(sub *models.ContactSubmission) error {
	subject := "We received your message"
	body := fmt.Sprintf("Hi %s,\r\n\r\nThanks for reaching out. We'll get back to you within one business day.\r\n", sub.Name)
	return s.send(sub.Email, subject, body)
}

func (s *SMTPSender) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
