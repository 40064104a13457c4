package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"netaccess-billing/internal/domain/ports/adapter"
	"netaccess-billing/internal/infra/i18n"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer turns a templated adapter.Mail into a subject and an HTML body
// in one language.
type Renderer struct {
	tr   *i18n.Translator
	tmpl *template.Template
}

func NewRenderer(tr *i18n.Translator) (*Renderer, error) {
	tmpl, err := template.New("mail").
		Funcs(template.FuncMap{"T": tr.T}).
		ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{tr: tr, tmpl: tmpl}, nil
}

// Render returns the localized subject and the HTML body of m.
func (r *Renderer) Render(m adapter.Mail) (string, string, error) {
	t := r.tmpl.Lookup(m.Template + ".html")
	if t == nil {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, m.Template)
	}
	var buf bytes.Buffer
	data := struct {
		Lang string
		Ctx  map[string]any
	}{Lang: r.tr.Lang(), Ctx: m.Context}
	if err := t.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", m.Template, err)
	}
	subject := r.tr.T("mail."+m.Template+".subject", m.Context["invoice_id"])
	return subject, buf.String(), nil
}
