package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	cfg SMTPConfig
}

// NewSMTPService builds the gomail-backed transport. Credentials are
// validated per send, not at construction, so a misconfigured deployment
// surfaces as delivery failures instead of a crash at startup.
func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{cfg: cfg}
}

func (s *smtpService) Send(_ context.Context, to string, subject string, body string) error {
	if s.cfg.Host == "" || s.cfg.From == "" {
		return fmt.Errorf("missing SMTP configuration: host and sender address are required")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	dialer := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
