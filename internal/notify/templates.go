package notify

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/pkg/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type templates struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func loadTemplates() (*templates, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/text.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "parse text templates")
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/html.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "parse html templates")
	}
	return &templates{text: text, html: html}, nil
}

type rendered struct {
	Subject string
	Text    string
	HTML    string
}

func (t *templates) render(kind Kind, data any) (*rendered, error) {
	var subject, text, html bytes.Buffer

	if err := t.text.ExecuteTemplate(&subject, string(kind)+".subject", data); err != nil {
		return nil, errors.Wrapf(err, "render %s subject", kind)
	}
	if err := t.text.ExecuteTemplate(&text, string(kind)+".text", data); err != nil {
		return nil, errors.Wrapf(err, "render %s text", kind)
	}
	if err := t.html.ExecuteTemplate(&html, string(kind)+".html", data); err != nil {
		return nil, errors.Wrapf(err, "render %s html", kind)
	}

	return &rendered{
		Subject: strings.TrimSpace(subject.String()),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
