package utils

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"syntrad-backend/dtos"

	"github.com/sirupsen/logrus"
)

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c EmailConfig) Configured() bool {
	return c.Host != "" && c.Port != "" && c.From != ""
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends transactional mail in the background. Every Send method
// returns immediately; failures are logged, never returned.
type Mailer struct {
	config EmailConfig
	log    logrus.FieldLogger
	send   sendFunc
}

func NewMailer(config EmailConfig, log logrus.FieldLogger) *Mailer {
	return &Mailer{config: config, log: log, send: smtp.SendMail}
}

func (m *Mailer) SendEmail(to, subject, htmlBody string) error {
	if !m.config.Configured() {
		return fmt.Errorf("SMTP not configured")
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		m.config.From, to, subject)
	msg := []byte(headers + htmlBody)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	addr := m.config.Host + ":" + m.config.Port
	return m.send(addr, auth, m.config.From, []string{to}, msg)
}

func (m *Mailer) sendAsync(to, subject, body, kind string) {
	go func() {
		if err := m.SendEmail(to, subject, body); err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{"to": to, "kind": kind}).Warn("failed to send email")
		}
	}()
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return "there"
}

func (m *Mailer) SendOrderConfirmation(to, name, orderID, total string) {
	subject := fmt.Sprintf("Order Confirmed - %s", orderID)
	body := fmt.Sprintf(`<h2>Order Confirmed!</h2>
<p>Hi %s,</p>
<p>Your order <strong>%s</strong> has been placed successfully.</p>
<p>Order total: <strong>£%s</strong></p>
<p>We'll be in touch when your order has been dispatched.</p>
<p>Syntrad Ltd</p>`, html.EscapeString(firstName(name)), html.EscapeString(orderID), html.EscapeString(total))
	m.sendAsync(to, subject, body, "order_confirmation")
}

// SendAppointmentNotice tells the workshop about a new contact message or quote request.
func (m *Mailer) SendAppointmentNotice(to string, req dtos.AppointmentRequest) {
	kind := "Contact message"
	if req.IsQuoteRequest {
		kind = "Quote request"
	}
	subject := fmt.Sprintf("%s from %s", kind, req.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n<ul>\n", kind)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "<li><strong>%s:</strong> %s</li>\n", label, html.EscapeString(value))
		}
	}
	row("Name", req.Name)
	row("Email", req.Email)
	row("Phone", req.Phone)
	row("Subject", req.Subject)
	row("Service", req.Service)
	row("Date", req.Date)
	row("Time", req.Time)
	b.WriteString("</ul>\n")
	if req.Message != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(req.Message))
	}
	m.sendAsync(to, subject, b.String(), "appointment_notice")
}
