package email

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/DFBlok/market-link-app/internal/models"
)

// RenderTemplate executes the subject and body of tmpl against data.
// Keys missing from data render as empty strings.
func RenderTemplate(tmpl *models.EmailTemplate, data map[string]interface{}) (subject, body string, err error) {
	render := func(name, text string) (string, error) {
		t, err := template.New(name).Option("missingkey=zero").Parse(text)
		if err != nil {
			return "", fmt.Errorf("parse %s template: %w", name, err)
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("render %s template: %w", name, err)
		}
		return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
	}

	if subject, err = render("subject", tmpl.Subject); err != nil {
		return "", "", err
	}
	if body, err = render("body", tmpl.Body); err != nil {
		return "", "", err
	}
	return subject, body, nil
}
