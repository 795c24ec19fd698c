// Package sequence enrolls users into drip email sequences on lifecycle events
// and dispatches each due step exactly once.
package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/mailer"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	sequenceModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/sequence"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Scheduler struct {
	db        *gorm.DB
	mailer    mailer.Mailer
	log       *logger.Logger
	loc       *time.Location
	batchSize int
	now       func() time.Time

	// sendTimeout bounds each mailer call so one hung provider cannot stall a run.
	sendTimeout time.Duration

	neverLoggedInDays int
	abandonedDays     int
	// sink receives events raised by DetectInactivity. Defaults to the scheduler itself.
	sink lifecycle.Notifier
}

type Option func(*Scheduler)

// WithLocation sets the time zone used for users without one.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithSendTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithInactivityDays sets the thresholds used by sequences without TriggerAfterDays.
func WithInactivityDays(neverLoggedIn, abandoned int) Option {
	return func(s *Scheduler) {
		s.neverLoggedInDays = neverLoggedIn
		s.abandonedDays = abandoned
	}
}

// WithEventSink routes inactivity events through n, typically the application fanout.
func WithEventSink(n lifecycle.Notifier) Option {
	return func(s *Scheduler) { s.sink = n }
}

func NewScheduler(db *gorm.DB, m mailer.Mailer, log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		db:                db,
		mailer:            m,
		log:               log.With("service", "sequence"),
		loc:               time.UTC,
		batchSize:         200,
		now:               time.Now,
		sendTimeout:       30 * time.Second,
		neverLoggedInDays: 3,
		abandonedDays:     7,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = s
	}
	return s
}

// Notify lets the scheduler listen on a lifecycle fanout.
func (s *Scheduler) Notify(ctx context.Context, ev lifecycle.Event) error {
	_, err := s.HandleEvent(ctx, ev)
	return err
}

// HandleEvent enrolls the user into every active sequence triggered by the
// event, highest priority first, and returns the ids of new enrollments.
// Inactivity events carry after_days; they only match sequences whose
// threshold has been reached.
func (s *Scheduler) HandleEvent(ctx context.Context, ev lifecycle.Event) ([]uint, error) {
	var sequences []sequenceModels.Sequence
	q := s.db.WithContext(ctx).Where("trigger_type = ? AND is_active = ?", ev.Name, true)
	if v := ev.Attr("after_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "after_days", Message: "must be a number"}}}
		}
		q = q.Where("trigger_after_days <= ?", days)
	}
	if err := q.Order("priority DESC, id").Find(&sequences).Error; err != nil {
		return nil, apperr.Storage("find triggered sequences", err)
	}

	at := ev.OccurredAt
	if at.IsZero() {
		at = s.now()
	}
	var enrolled []uint
	for _, seq := range sequences {
		created, err := s.enroll(ctx, ev.UserID, seq.ID, ev.Name, at)
		if err != nil {
			return enrolled, err
		}
		if created != nil {
			enrolled = append(enrolled, created.ID)
			s.log.Info("user enrolled in sequence", "user_id", ev.UserID, "sequence", seq.Slug, "trigger", ev.Name)
		}
	}
	return enrolled, nil
}

// Enroll puts the user into an active sequence. Enrolling again, including
// after the sequence completed or exited, returns the existing enrollment.
func (s *Scheduler) Enroll(ctx context.Context, userID, sequenceID uint, at time.Time) (*sequenceModels.SequenceEnrollment, bool, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apperr.NotFound("user", userID)
		}
		return nil, false, apperr.Storage("load user", err)
	}
	var seq sequenceModels.Sequence
	if err := s.db.WithContext(ctx).First(&seq, sequenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apperr.NotFound("sequence", sequenceID)
		}
		return nil, false, apperr.Storage("load sequence", err)
	}
	if !seq.IsActive {
		return nil, false, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "sequence_id", Message: "sequence is not active"}}}
	}

	created, err := s.enroll(ctx, userID, seq.ID, "manual", at)
	if err != nil {
		return nil, false, err
	}
	if created != nil {
		return created, true, nil
	}
	var existing sequenceModels.SequenceEnrollment
	if err := s.db.WithContext(ctx).Where("user_id = ? AND sequence_id = ?", userID, seq.ID).First(&existing).Error; err != nil {
		return nil, false, apperr.Storage("load sequence enrollment", err)
	}
	return &existing, false, nil
}

func (s *Scheduler) enroll(ctx context.Context, userID, sequenceID uint, trigger string, at time.Time) (*sequenceModels.SequenceEnrollment, error) {
	var stepIDs []uint
	err := s.db.WithContext(ctx).Model(&sequenceModels.SequenceEmail{}).
		Where("sequence_id = ?", sequenceID).
		Order("order_index").
		Pluck("id", &stepIDs).Error
	if err != nil {
		return nil, apperr.Storage("load sequence steps", err)
	}
	snapshot, err := json.Marshal(stepIDs)
	if err != nil {
		return nil, err
	}

	row := sequenceModels.SequenceEnrollment{
		UserID:       userID,
		SequenceID:   sequenceID,
		Status:       sequenceModels.StatusActive,
		TriggerEvent: trigger,
		EnrolledAt:   at,
		StepEmailIDs: datatypes.JSON(snapshot),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return nil, apperr.Storage("enroll in sequence", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

func (s *Scheduler) location(user *models.User) *time.Location {
	if user.Timezone != "" {
		if loc, err := time.LoadLocation(user.Timezone); err == nil {
			return loc
		}
		s.log.Warn("unknown user timezone", "user_id", user.ID, "timezone", user.Timezone)
	}
	return s.loc
}
