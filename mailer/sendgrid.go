package mailer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendGrid struct {
	key    string
	host   string
	from   *sgmail.Email
	client *rest.Client
}

// NewSendGrid builds a v3 mail API client whose requests give up after timeout.
func NewSendGrid(key, fromName, fromEmail string, timeout time.Duration) *SendGrid {
	return &SendGrid{
		key:    key,
		host:   sendgridHost,
		from:   sgmail.NewEmail(fromName, fromEmail),
		client: &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
	}
}

func (s *SendGrid) prepare(msg Message, html string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", html))
	return m
}

// Send posts the message to the v3 mail API. The X-Message-Id header is the delivery reference.
func (s *SendGrid) Send(ctx context.Context, msg Message) (string, error) {
	html, err := Render(msg)
	if err != nil {
		return "", err
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg, html))

	res, err := s.client.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
