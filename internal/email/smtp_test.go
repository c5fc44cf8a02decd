package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSend_MissingConfigurationFailsAttempt(t *testing.T) {
	svc := NewSMTPService(SMTPConfig{})

	err := svc.Send(context.Background(), "student@example.com", "subject", "body")
	assert.ErrorContains(t, err, "missing SMTP configuration")
}

func TestSend_MissingSenderFailsAttempt(t *testing.T) {
	svc := NewSMTPService(SMTPConfig{Host: "smtp.example.com", Port: 587})

	err := svc.Send(context.Background(), "student@example.com", "subject", "body")
	assert.ErrorContains(t, err, "missing SMTP configuration")
}
