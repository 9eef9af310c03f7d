package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MockEmailTTL is how long a captured email stays readable.
const MockEmailTTL = 5 * time.Minute

// MockEmail is the JSON document RedisSender stores for tests to read back.
type MockEmail struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TemplateID string `json:"templateId"`
	SentAt     string `json:"sent_at"`
}

// MockEmailKey is the redis key of the last mock email of a template sent to a recipient.
func MockEmailKey(to, templateID string) string {
	if templateID == "" {
		templateID = "unknown"
	}
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), templateID)
}

// RedisSender implements the Sender interface by storing emails in Redis.
// It is enabled with MOCK_SERVICES so integration tests can fetch sent mail
// through the service API.
type RedisSender struct {
	client *redis.Client
	from   string
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client *redis.Client, from string) *RedisSender {
	return &RedisSender{client: client, from: from}
}

// Send stores one document per primary recipient and template.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	doc := MockEmail{
		To:      strings.Join(to, ", "),
		From:    s.from,
		Subject: subject,
		Body:    string(rawMessage),
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if msg, err := mail.ReadMessage(bytes.NewReader(rawMessage)); err == nil {
		doc.TemplateID = msg.Header.Get(HeaderTemplateID)
		if body, err := io.ReadAll(msg.Body); err == nil {
			doc.Body = string(body)
		}
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}
	key := MockEmailKey(primaryTo, doc.TemplateID)
	if err := s.client.Set(ctx, key, jsonData, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	logger.FromContext(ctx).Debug("Mock email stored in Redis", zap.String("key", key), zap.String("subject", subject))
	return nil
}
