// Package compose renders briefs into the HTML and plain-text email sent to
// the user. Generated text is untrusted: it is rendered and sanitized into a
// fragment and placed inside a shell built by html/template.
package compose

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Email is a composed message ready for BuildMIME.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	policy = newPolicy()
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Fragment turns generated Markdown or HTML into a sanitized HTML fragment.
// Raw HTML is passed through goldmark and then filtered, so either output
// style from the model ends up as the same safe subset.
func Fragment(generated string) template.HTML {
	src := stripCodeFence(generated)
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(policy.Sanitize(template.HTMLEscapeString(src)))
	}
	return template.HTML(policy.Sanitize(buf.String()))
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #f5f7fa; margin: 0; padding: 20px;">
<div style="max-width: 700px; margin: 0 auto; background: #ffffff; border-radius: 12px; overflow: hidden;">
<div style="background: #4f5bd5; color: #ffffff; padding: 28px; text-align: center;">
<h1 style="margin: 0 0 8px 0; font-size: 24px;">{{.Heading}}</h1>
<p style="margin: 0; font-size: 15px;">{{.Date}}</p>
{{with .Tagline}}<p style="margin: 8px 0 0 0; font-size: 14px;">{{.}}</p>{{end}}
</div>
<div style="padding: 24px;">
{{template "content" .}}
</div>
<div style="background: #f8f9fa; padding: 16px; text-align: center; color: #888888; font-size: 12px;">Generated by meetprep</div>
</div>
</body>
</html>{{end}}`

// page is the data every template receives; Body is template specific.
type page struct {
	Heading string
	Date    string
	Tagline string
	Body    any
}

func mustTemplate(content string) *template.Template {
	t := template.Must(template.New("email").Parse(layoutTemplate))
	return template.Must(t.Parse(content))
}

func render(t *template.Template, p page) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return "", err
	}
	return buf.String(), nil
}
