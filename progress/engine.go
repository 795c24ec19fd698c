// Package progress turns lesson completions and quiz attempts into module and
// course completion, and issues certificates at most once per scope.
package progress

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	"gorm.io/gorm"
)

type Engine struct {
	db       *gorm.DB
	log      *logger.Logger
	now      func() time.Time
	numbers  func(time.Time) string
	notifier lifecycle.Notifier
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCertificateNumbers replaces the certificate number generator.
func WithCertificateNumbers(gen func(time.Time) string) Option {
	return func(e *Engine) { e.numbers = gen }
}

// WithNotifier receives lifecycle events after the producing step commits.
func WithNotifier(n lifecycle.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func NewEngine(db *gorm.DB, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		db:      db,
		log:     log.With("service", "progress"),
		now:     time.Now,
		numbers: NewCertificateNumber,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewCertificateNumber returns ASI-<base36 millis>-<random suffix>, upper case.
func NewCertificateNumber(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return strings.ToUpper("ASI-" + strconv.FormatInt(at.UnixMilli(), 36) + "-" + suffix)
}

func (e *Engine) emit(ctx context.Context, ev lifecycle.Event) {
	if e.notifier == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now()
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.log.Error("lifecycle notify failed", "event", ev.Name, "user_id", ev.UserID, "error", err)
	}
}

func (e *Engine) loadUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := e.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", userID)
		}
		return nil, apperr.Storage("load user", err)
	}
	return &user, nil
}

func (e *Engine) loadCourse(ctx context.Context, courseID uint) (*courseModels.Course, error) {
	var course courseModels.Course
	if err := e.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("course", courseID)
		}
		return nil, apperr.Storage("load course", err)
	}
	return &course, nil
}

func (e *Engine) loadModule(ctx context.Context, moduleID uint) (*courseModels.Module, error) {
	var module courseModels.Module
	if err := e.db.WithContext(ctx).First(&module, moduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("module", moduleID)
		}
		return nil, apperr.Storage("load module", err)
	}
	return &module, nil
}

func courseAttrs(course *courseModels.Course) map[string]string {
	return map[string]string{
		"course_slug":      course.Slug,
		"certificate_type": string(course.CertificateType),
	}
}
