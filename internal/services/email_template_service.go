package services

import (
	"context"
	"fmt"

	"github.com/DFBlok/market-link-app/internal/models"
)

var defaultEmailTemplates = map[string]models.EmailTemplate{
	models.TemplateInquiryReceived: {
		TemplateID: models.TemplateInquiryReceived,
		Locale:     models.DefaultLocale,
		Subject:    "New inquiry: {{.productName}}",
		Body: `Hello {{.supplierName}},

{{.manufacturerName}} sent you an inquiry about {{.productName}}.
Priority: {{.priority}}{{if .quantity}}
Quantity: {{.quantity}}{{end}}

{{.message}}

Reply from your {{.appName}} dashboard (inquiry {{.inquiryId}}).`,
	},
	models.TemplateInquiryResponded: {
		TemplateID: models.TemplateInquiryResponded,
		Locale:     models.DefaultLocale,
		Subject:    "{{.supplierName}} responded to your inquiry about {{.productName}}",
		Body: `Hello {{.manufacturerName}},

{{.supplierName}} responded to your inquiry {{.inquiryId}}:

{{.response}}
{{if .quotedPrice}}
Quoted price: {{.quotedPrice}}{{end}}{{if .deliveryTime}}
Delivery time: {{.deliveryTime}}{{end}}{{if .notes}}
Notes: {{.notes}}{{end}}

{{.appName}}`,
	},
	models.TemplateOrderReceived: {
		TemplateID: models.TemplateOrderReceived,
		Locale:     models.DefaultLocale,
		Subject:    "New order {{.orderId}}",
		Body: `You received order {{.orderId}} with {{.itemCount}} line item(s), total {{.totalAmount}}.

Ship to:
{{.shippingAddress}}

{{.appName}}`,
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

// EmailTemplateService serves the built-in notification templates. Locales
// without a dedicated template fall back to the default locale.
type EmailTemplateService struct {
	templates map[string]models.EmailTemplate
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService() *EmailTemplateService {
	return &EmailTemplateService{templates: defaultEmailTemplates}
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	tmpl, ok := s.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
	}
	return &tmpl, nil
}
