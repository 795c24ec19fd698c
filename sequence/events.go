package sequence

import (
	"context"
	"errors"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	sequenceModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/sequence"
	"gorm.io/gorm"
)

// EmailEventInput is a reply or click reported by the mail provider.
// SequenceID may be omitted when SequenceEmailID is known.
type EmailEventInput struct {
	UserID          uint
	SequenceID      uint
	SequenceEmailID *uint
	Type            string
	OccurredAt      time.Time
}

// RecordEmailEvent stores the event and exits the enrollment right away when
// the sequence stops on that kind of event.
func (s *Scheduler) RecordEmailEvent(ctx context.Context, in EmailEventInput) (*sequenceModels.EmailEvent, error) {
	if in.Type != sequenceModels.EventReply && in.Type != sequenceModels.EventClick {
		return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "type", Message: "must be REPLY or CLICK"}}}
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = s.now()
	}
	db := s.db.WithContext(ctx)

	if in.SequenceID == 0 {
		if in.SequenceEmailID == nil {
			return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "sequence_id", Message: "sequence_id or sequence_email_id is required"}}}
		}
		var email sequenceModels.SequenceEmail
		if err := db.Unscoped().First(&email, *in.SequenceEmailID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("sequence email", *in.SequenceEmailID)
			}
			return nil, apperr.Storage("load sequence email", err)
		}
		in.SequenceID = email.SequenceID
	}

	var enr sequenceModels.SequenceEnrollment
	if err := db.Where("user_id = ? AND sequence_id = ?", in.UserID, in.SequenceID).First(&enr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("sequence enrollment", in.SequenceID)
		}
		return nil, apperr.Storage("load sequence enrollment", err)
	}

	ev := sequenceModels.EmailEvent{
		UserID:          in.UserID,
		SequenceID:      in.SequenceID,
		SequenceEmailID: in.SequenceEmailID,
		Type:            in.Type,
		OccurredAt:      in.OccurredAt,
	}
	if err := db.Create(&ev).Error; err != nil {
		return nil, apperr.Storage("record email event", err)
	}

	if enr.Status != sequenceModels.StatusActive {
		return &ev, nil
	}
	var seq sequenceModels.Sequence
	if err := db.First(&seq, in.SequenceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ev, nil
		}
		return nil, apperr.Storage("load sequence", err)
	}
	reason := ""
	switch {
	case in.Type == sequenceModels.EventReply && seq.ExitOnReply:
		reason = "replied"
	case in.Type == sequenceModels.EventClick && seq.ExitOnClick:
		reason = "clicked"
	}
	if reason != "" {
		if _, err := s.exit(ctx, enr, reason, in.OccurredAt); err != nil {
			return nil, apperr.Storage("exit sequence", err)
		}
	}
	return &ev, nil
}
