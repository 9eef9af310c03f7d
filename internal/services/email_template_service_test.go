package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DFBlok/market-link-app/internal/email"
	"github.com/DFBlok/market-link-app/internal/models"
)

func TestEmailTemplateService_RendersBuiltins(t *testing.T) {
	svc := NewEmailTemplateService()
	ctx := context.Background()

	tmpl, err := svc.GetTemplate(ctx, models.TemplateInquiryReceived, "fr-FR")
	require.NoError(t, err)
	subject, body, err := email.RenderTemplate(tmpl, map[string]interface{}{
		"supplierName":     "SteelCorp",
		"manufacturerName": "Ada",
		"productName":      "Steel Sheets",
		"priority":         "High",
		"message":          "Need 500kg",
		"inquiryId":        "ABCDEFGH00",
		"appName":          "Market Link",
	})
	require.NoError(t, err)
	assert.Equal(t, "New inquiry: Steel Sheets", subject)
	assert.Contains(t, body, "Hello SteelCorp,")
	assert.Contains(t, body, "Need 500kg")
	assert.NotContains(t, body, "Quantity:", "empty quantity is omitted")
	assert.NotContains(t, body, "<no value>")

	for _, id := range []string{models.TemplateInquiryResponded, models.TemplateOrderReceived} {
		tmpl, err := svc.GetTemplate(ctx, id, models.DefaultLocale)
		require.NoError(t, err, id)
		_, _, err = email.RenderTemplate(tmpl, map[string]interface{}{})
		require.NoError(t, err, id)
	}

	_, err = svc.GetTemplate(ctx, "password_reset", models.DefaultLocale)
	assert.Error(t, err)
}
