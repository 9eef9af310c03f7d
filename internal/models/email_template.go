package models

// Template ids of the notification emails.
const (
	TemplateInquiryReceived  = "inquiry_received"
	TemplateInquiryResponded = "inquiry_responded"
	TemplateOrderReceived    = "order_received"
)

// DefaultLocale is used when a task does not name one.
const DefaultLocale = "en-US"

// EmailTemplate is a text/template pair for the subject and body of a notification.
type EmailTemplate struct {
	TemplateID string `json:"template_id"`
	Locale     string `json:"locale"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}
