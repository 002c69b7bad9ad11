package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// DefaultFooter is used when AddFooter is called without text.
const DefaultFooter = "This is an automatically sent email, please do not reply."

type block struct {
	Text string
	URL  string // set for buttons
}

// EmailTemplate builds a notification mail from headings, paragraphs and
// buttons, and renders it as plain text and HTML.
type EmailTemplate struct {
	id          string
	productName string
	subject     string
	header      bool
	heading     string
	blocks      []block
	footer      string
}

// ID returns the template identifier, e.g. "suspiciousLogin.suspiciousLoginDetected".
func (t *EmailTemplate) ID() string { return t.id }

// Subject returns the subject set with SetSubject.
func (t *EmailTemplate) Subject() string { return t.subject }

func (t *EmailTemplate) SetSubject(subject string) {
	t.subject = subject
}

// AddHeader adds the product banner at the top of the HTML body.
func (t *EmailTemplate) AddHeader() {
	t.header = true
}

func (t *EmailTemplate) AddHeading(title string) {
	t.heading = title
}

// AddBodyText appends a paragraph.
func (t *EmailTemplate) AddBodyText(text string) {
	t.blocks = append(t.blocks, block{Text: text})
}

// AddBodyButton appends a call-to-action link. The plain-text body shows it
// as "text: url".
func (t *EmailTemplate) AddBodyButton(text, url string) {
	t.blocks = append(t.blocks, block{Text: text, URL: url})
}

// AddFooter sets the footer line; an empty text uses DefaultFooter.
func (t *EmailTemplate) AddFooter(text ...string) {
	t.footer = DefaultFooter
	if len(text) > 0 && text[0] != "" {
		t.footer = text[0]
	}
}

// RenderText returns the plain-text body.
func (t *EmailTemplate) RenderText() string {
	var sb strings.Builder
	if t.heading != "" {
		sb.WriteString(t.heading)
		sb.WriteString("\n\n")
	}
	for _, b := range t.blocks {
		if b.URL != "" {
			fmt.Fprintf(&sb, "%s: %s\n\n", b.Text, b.URL)
			continue
		}
		sb.WriteString(b.Text)
		sb.WriteString("\n\n")
	}
	if t.footer != "" {
		sb.WriteString("-- \n")
		if t.productName != "" {
			sb.WriteString(t.productName)
			sb.WriteString(" - ")
		}
		sb.WriteString(t.footer)
		sb.WriteString("\n")
	}
	return sb.String()
}

var htmlLayout = template.Must(template.New("mail").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family:Helvetica,Arial,sans-serif;color:#222;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td align="center">
<table role="presentation" width="600" cellpadding="0" cellspacing="0">
{{- if .Header}}
<tr><td style="background:#0082c9;color:#fff;padding:20px;font-size:20px;">{{.ProductName}}</td></tr>
{{- end}}
{{- if .Heading}}
<tr><td style="padding:20px 20px 0;"><h1 style="font-size:22px;font-weight:normal;">{{.Heading}}</h1></td></tr>
{{- end}}
{{- range .Blocks}}
{{- if .URL}}
<tr><td style="padding:10px 20px;"><a href="{{.URL}}" style="display:inline-block;background:#0082c9;color:#fff;padding:10px 18px;border-radius:4px;text-decoration:none;">{{.Text}}</a></td></tr>
{{- else}}
<tr><td style="padding:10px 20px;"><p style="margin:0;line-height:1.5;">{{.Text}}</p></td></tr>
{{- end}}
{{- end}}
{{- if .Footer}}
<tr><td style="padding:20px;color:#767676;font-size:12px;">{{if .ProductName}}{{.ProductName}} - {{end}}{{.Footer}}</td></tr>
{{- end}}
</table>
</td></tr></table>
</body>
</html>
`))

// RenderHTML returns the HTML body. All text is escaped.
func (t *EmailTemplate) RenderHTML() (string, error) {
	data := struct {
		Subject     string
		ProductName string
		Header      bool
		Heading     string
		Blocks      []block
		Footer      string
	}{
		Subject:     t.subject,
		ProductName: t.productName,
		Header:      t.header,
		Heading:     t.heading,
		Blocks:      t.blocks,
		Footer:      t.footer,
	}

	var buf bytes.Buffer
	if err := htmlLayout.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.id, err)
	}
	return buf.String(), nil
}
