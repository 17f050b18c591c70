package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Gateway sends transactional email to portal users
type Gateway interface {
	Send(to, subject, body string) error
}

// SMTPConfig holds configuration for the SMTP gateway
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPGateway implements Gateway over plain SMTP with AUTH
type SMTPGateway struct {
	config SMTPConfig
}

// NewSMTPGateway creates a new SMTP email gateway
func NewSMTPGateway(config SMTPConfig) *SMTPGateway {
	return &SMTPGateway{config: config}
}

// Send delivers one message to a single recipient
func (g *SMTPGateway) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", g.config.Host, g.config.Port)
	auth := smtp.PlainAuth("", g.config.Username, g.config.Password, g.config.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", g.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(addr, auth, g.config.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// DevGateway implements Gateway by logging the message instead of sending it.
// Used in development so password-reset flows work without SMTP credentials.
type DevGateway struct {
	logger *logrus.Logger
}

// NewDevGateway creates a logging email gateway
func NewDevGateway(logger *logrus.Logger) *DevGateway {
	return &DevGateway{logger: logger}
}

// Send logs the message at info level
func (g *DevGateway) Send(to, subject, body string) error {
	g.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
		"body":    body,
	}).Info("Dev mailer: email not sent")
	return nil
}
