package mailer

import (
	"context"

	"github.com/google/uuid"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
)

// Console logs messages instead of delivering them. Used in development.
type Console struct {
	log *logger.Logger
}

func NewConsole(log *logger.Logger) *Console {
	return &Console{log: log.With("service", "mailer", "provider", "console")}
}

func (c *Console) Send(ctx context.Context, msg Message) (string, error) {
	html, err := Render(msg)
	if err != nil {
		return "", err
	}
	ref := "console-" + uuid.NewString()
	c.log.Info("email", "to", msg.ToEmail, "subject", msg.Subject, "ref", ref, "bytes", len(html))
	return ref, nil
}
