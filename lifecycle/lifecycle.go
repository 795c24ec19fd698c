// Package lifecycle carries named user lifecycle events between the
// completion engine, lead tagging and the sequence scheduler.
package lifecycle

import (
	"context"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
)

const (
	UserRegistered        = "user.registered"
	UserNeverLoggedIn     = "user.neverLoggedIn"
	UserAbandonedLearning = "user.abandonedLearning"
	CourseEnrolled        = "course.enrolled"
	ModuleCompleted       = "module.completed"
	CourseCompleted       = "course.completed"
	CertificateIssued     = "certificate.issued"
	MiniDiplomaCompleted  = "mini_diploma.completed"
)

// Event is a fact about one user. CourseID and Attrs are optional.
type Event struct {
	Name       string
	UserID     uint
	CourseID   uint
	OccurredAt time.Time
	Attrs      map[string]string
}

func (e Event) Attr(key string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[key]
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Fanout delivers each event to every notifier in order. A failing notifier
// is logged and does not stop delivery to the rest.
type Fanout struct {
	log       *logger.Logger
	notifiers []Notifier
}

func NewFanout(log *logger.Logger, notifiers ...Notifier) *Fanout {
	return &Fanout{log: log.With("service", "lifecycle"), notifiers: notifiers}
}

func (f *Fanout) Add(n Notifier) {
	f.notifiers = append(f.notifiers, n)
}

func (f *Fanout) Notify(ctx context.Context, ev Event) error {
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			f.log.Error("lifecycle listener failed", "event", ev.Name, "user_id", ev.UserID, "error", err)
		}
	}
	return nil
}
