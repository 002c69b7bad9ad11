package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/victorlap/suspicious-login/internal/mail/provider"
	"github.com/victorlap/suspicious-login/internal/mail/retry"
)

type fakeTransport struct {
	errs []error // returned in order, then nil
	reqs []*provider.EmailRequest
}

func (f *fakeTransport) Send(ctx context.Context, req *provider.EmailRequest) error {
	f.reqs = append(f.reqs, req)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

type countingRecorder struct {
	sent, failed int
}

func (c *countingRecorder) RecordReceived()                  {}
func (c *countingRecorder) RecordDispatched(_ time.Duration) {}
func (c *countingRecorder) RecordError()                     {}
func (c *countingRecorder) RecordSent()                      { c.sent++ }
func (c *countingRecorder) RecordFailed()                    { c.failed++ }
func (c *countingRecorder) RecordLoginRecorded()             {}

func fastRetry() retry.Config {
	return retry.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2,
	}
}

func TestEmailTemplate_Render(t *testing.T) {
	m := NewMailer(&fakeTransport{}, "noreply@example.com", WithProductName("Cloud"))
	tmpl := m.CreateEmailTemplate("suspiciousLogin.suspiciousLoginDetected")
	tmpl.SetSubject("New login location detected")
	tmpl.AddHeader()
	tmpl.AddHeading("New login location detected")
	tmpl.AddBodyText("The IP address 203.0.113.7 was classified as suspicious.")
	tmpl.AddBodyButton("More information ↗", "https://iplookup.flagfox.net/?ip=203.0.113.7")
	tmpl.AddFooter()

	if tmpl.ID() != "suspiciousLogin.suspiciousLoginDetected" {
		t.Errorf("ID() = %q", tmpl.ID())
	}

	text := tmpl.RenderText()
	for _, want := range []string{
		"New login location detected\n\n",
		"The IP address 203.0.113.7 was classified as suspicious.",
		"More information ↗: https://iplookup.flagfox.net/?ip=203.0.113.7",
		"Cloud - " + DefaultFooter,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("RenderText() missing %q:\n%s", want, text)
		}
	}

	html, err := tmpl.RenderHTML()
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	for _, want := range []string{
		`<title>New login location detected</title>`,
		`href="https://iplookup.flagfox.net/?ip=203.0.113.7"`,
		`>Cloud</td>`,
		"203.0.113.7 was classified as suspicious.",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("RenderHTML() missing %q:\n%s", want, html)
		}
	}
}

func TestEmailTemplate_EscapesHTML(t *testing.T) {
	tmpl := (&Mailer{}).CreateEmailTemplate("x")
	tmpl.AddBodyText(`<script>alert("x")</script>`)

	html, err := tmpl.RenderHTML()
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("body text was not escaped:\n%s", html)
	}
	if strings.Contains(html, "<h1") || strings.Contains(html, "<a ") {
		t.Error("heading or button rendered without being added")
	}
}

func TestMessage_UseTemplate(t *testing.T) {
	m := NewMailer(&fakeTransport{}, "noreply@example.com")
	msg := m.CreateMessage()
	if msg.From != "noreply@example.com" {
		t.Errorf("From = %q", msg.From)
	}

	tmpl := m.CreateEmailTemplate("id")
	tmpl.SetSubject("Subject")
	tmpl.AddBodyText("hello")
	if err := msg.SetTo([]string{"alice@example.com"}).UseTemplate(tmpl); err != nil {
		t.Fatalf("UseTemplate() error = %v", err)
	}
	if msg.Subject != "Subject" || !strings.Contains(msg.Text, "hello") || !strings.Contains(msg.HTML, "hello") {
		t.Errorf("message = %+v", msg)
	}
	if err := msg.UseTemplate(nil); err == nil {
		t.Error("UseTemplate(nil) should fail")
	}
}

func TestMailer_Send(t *testing.T) {
	transport := &fakeTransport{}
	rec := &countingRecorder{}
	m := NewMailer(transport, "noreply@example.com", WithMetrics(rec), WithRetry(fastRetry()))

	msg := m.CreateMessage().SetTo([]string{"alice@example.com"})
	msg.Subject = "s"
	msg.Text = "t"
	if err := m.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(transport.reqs) != 1 {
		t.Fatalf("transport calls = %d, want 1", len(transport.reqs))
	}
	req := transport.reqs[0]
	if req.From != "noreply@example.com" || req.To[0] != "alice@example.com" || req.Body != "t" {
		t.Errorf("request = %+v", req)
	}
	if rec.sent != 1 || rec.failed != 0 {
		t.Errorf("metrics sent=%d failed=%d", rec.sent, rec.failed)
	}
}

func TestMailer_SendValidation(t *testing.T) {
	tests := []struct {
		name    string
		to      []string
		wantErr error
	}{
		{name: "no recipients", to: nil, wantErr: ErrNoRecipients},
		{name: "missing at", to: []string{"alice.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{}
			m := NewMailer(transport, "noreply@example.com")
			err := m.Send(context.Background(), &Message{To: tt.to})
			if err == nil {
				t.Fatal("Send() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
			}
			if len(transport.reqs) != 0 {
				t.Error("transport should not be called")
			}
		})
	}
}

func TestMailer_SendRetriesTransient(t *testing.T) {
	transport := &fakeTransport{errs: []error{errors.New("421 service not available")}}
	rec := &countingRecorder{}
	m := NewMailer(transport, "noreply@example.com", WithMetrics(rec), WithRetry(fastRetry()))

	if err := m.Send(context.Background(), &Message{To: []string{"alice@example.com"}}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(transport.reqs) != 2 {
		t.Errorf("transport calls = %d, want 2", len(transport.reqs))
	}
	if rec.sent != 1 {
		t.Errorf("sent = %d, want 1", rec.sent)
	}
}

func TestMailer_SendPermanentFailure(t *testing.T) {
	transport := &fakeTransport{errs: []error{errors.New("email address not verified")}}
	rec := &countingRecorder{}
	m := NewMailer(transport, "noreply@example.com", WithMetrics(rec), WithRetry(fastRetry()))

	err := m.Send(context.Background(), &Message{To: []string{"alice@example.com"}})
	if err == nil || !strings.Contains(err.Error(), "not verified") {
		t.Fatalf("Send() error = %v", err)
	}
	if len(transport.reqs) != 1 {
		t.Errorf("transport calls = %d, want 1", len(transport.reqs))
	}
	if rec.failed != 1 {
		t.Errorf("failed = %d, want 1", rec.failed)
	}
}
