package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type Resend struct {
	client *resty.Client
	from   string
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// NewResend builds a Resend client. Every request is cut off after timeout.
func NewResend(baseURL, apiKey, fromName, fromEmail string, timeout time.Duration) *Resend {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	from := fromEmail
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromEmail)
	}
	return &Resend{client: client, from: from}
}

// Send posts to /emails and returns the id Resend assigns.
func (r *Resend) Send(ctx context.Context, msg Message) (string, error) {
	html, err := Render(msg)
	if err != nil {
		return "", err
	}

	var out resendResponse
	var apiErr resendError
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(resendRequest{From: r.from, To: []string{msg.ToEmail}, Subject: msg.Subject, HTML: html}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("resend: status %d: %s", resp.StatusCode(), apiErr.Message)
	}
	return out.ID, nil
}
