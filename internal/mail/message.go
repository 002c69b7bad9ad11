package mail

import "fmt"

// Message is an outgoing mail. Subject and bodies are normally filled in by
// UseTemplate.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// SetTo replaces the recipient list.
func (m *Message) SetTo(recipients []string) *Message {
	m.To = append([]string(nil), recipients...)
	return m
}

// UseTemplate renders t into the message subject and bodies.
func (m *Message) UseTemplate(t *EmailTemplate) error {
	if t == nil {
		return fmt.Errorf("template is nil")
	}
	html, err := t.RenderHTML()
	if err != nil {
		return err
	}
	m.Subject = t.Subject()
	m.Text = t.RenderText()
	m.HTML = html
	return nil
}
