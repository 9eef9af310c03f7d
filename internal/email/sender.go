// Package email delivers rendered messages. Senders receive the complete
// RFC 5322 message; BuildMessage produces one.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/logger"
	"go.uber.org/zap"
)

// HeaderTemplateID names the template a message was rendered from.
const HeaderTemplateID = "X-Template-ID"

// Sender defines the interface for sending emails.
// The rawMessage parameter should contain the full email message, including headers and body, properly formatted.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// Message is a plain text email before serialization.
type Message struct {
	From       string
	To         string
	Subject    string
	Body       string
	TemplateID string
}

// BuildMessage serializes m with the essential headers.
func BuildMessage(m Message, now time.Time) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", m.To)
	fmt.Fprintf(&sb, "From: %s\r\n", m.From)
	fmt.Fprintf(&sb, "Subject: %s\r\n", sanitizeHeader(m.Subject))
	sb.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	if m.TemplateID != "" {
		fmt.Fprintf(&sb, "%s: %s\r\n", HeaderTemplateID, m.TemplateID)
	}
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(m.Body)
	if !strings.HasSuffix(m.Body, "\r\n") {
		sb.WriteString("\r\n")
	}
	return []byte(sb.String())
}

// Header values come from user input; a line break would inject headers.
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	from string
	auth smtp.Auth
	addr string
}

// NewSMTPSender creates a new SMTPSender, or a LoggingSender when no SMTP host is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		logger.GetLogger().Info("SMTP host not configured, using logging email sender")
		return &LoggingSender{from: cfg.SmtpFromAddress}
	}

	auth := smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	return &SMTPSender{
		from: cfg.SmtpFromAddress,
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

// Send sends an email using SMTP.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	logger.FromContext(ctx).Info("Email sent via SMTP", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

// LoggingSender logs email details instead of sending.
type LoggingSender struct {
	from string
}

// Send logs the email, including the raw message at debug level.
func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	log := logger.FromContext(ctx)
	log.Info("Email (logged, not sent)",
		zap.Strings("to", to),
		zap.String("from", s.from),
		zap.String("subject", subject),
	)
	log.Debug("Email raw message", zap.ByteString("raw", rawMessage))
	return nil
}
