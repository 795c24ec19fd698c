// Package mailer delivers rendered emails through a pluggable provider.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
)

// Message is one outbound email. BodyTemplate is an html/template fragment
// executed against TemplateVars and wrapped in the branded layout.
type Message struct {
	ToEmail      string
	ToName       string
	Subject      string
	BodyTemplate string
	TemplateVars map[string]string
}

// Mailer sends a message and returns the provider's delivery reference.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
	<style>
		body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
		.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
		.header { background-color: #1F2A44; padding: 30px; text-align: center; }
		.header h1 { color: #FFFFFF; margin: 0; font-size: 22px; letter-spacing: 1px; }
		.content { padding: 40px 30px; color: #1F2A44; line-height: 1.6; }
		.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
		.btn { display: inline-block; padding: 12px 24px; background-color: #B8860B; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>ACCREDIPRO ACADEMY</h1></div>
		<div class="content">
			<h2>{{.Title}}</h2>
			{{.Body}}
		</div>
		<div class="footer">You receive this email because you enrolled at AccrediPro Academy.</div>
	</div>
</body>
</html>`))

// Render executes the body template and wraps it in the layout.
func Render(msg Message) (string, error) {
	body, err := template.New("body").Option("missingkey=zero").Parse(msg.BodyTemplate)
	if err != nil {
		return "", fmt.Errorf("parse body template: %w", err)
	}
	var inner bytes.Buffer
	if err := body.Execute(&inner, msg.TemplateVars); err != nil {
		return "", fmt.Errorf("execute body template: %w", err)
	}

	var out bytes.Buffer
	err = layout.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{Title: msg.Subject, Body: template.HTML(inner.String())})
	if err != nil {
		return "", fmt.Errorf("execute layout: %w", err)
	}
	return out.String(), nil
}

// Recorder keeps every message in memory. Err, when set, fails each send.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
	Err      error
}

func (r *Recorder) Send(ctx context.Context, msg Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	r.Messages = append(r.Messages, msg)
	return fmt.Sprintf("rec-%d", len(r.Messages)), nil
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.Messages...)
}
