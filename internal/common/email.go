package common

import (
	"errors"
	"strings"

	"gopkg.in/gomail.v2"
)

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	Send(to, subject, body string) error
}

// InMemoryEmail provides a test-friendly email sender that records messages.
type InMemoryEmail struct {
	Outbox []Email
}

// Email represents a single email message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to, subject, body string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, Body: body})
	return nil
}

// NopEmailSender implements EmailSender without performing any action.
type NopEmailSender struct{}

// Send implements EmailSender.
func (NopEmailSender) Send(string, string, string) error { return nil }

// SMTPSender delivers plain-text mail through an SMTP relay.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Send dials the relay once per message.
func (s SMTPSender) Send(to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("email: recipient is required")
	}
	if s.Host == "" || s.From == "" {
		return errors.New("email: smtp sender not configured")
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return gomail.NewDialer(s.Host, s.Port, s.Username, s.Password).DialAndSend(msg)
}
