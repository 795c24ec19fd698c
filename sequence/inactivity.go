package sequence

import (
	"context"
	"strconv"
	"time"

	"github.com/jinzhu/now"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	courseModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/course"
	sequenceModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/sequence"
)

type InactivityReport struct {
	NeverLoggedIn     int `json:"never_logged_in"`
	AbandonedLearning int `json:"abandoned_learning"`
}

// DetectInactivity raises user.neverLoggedIn and user.abandonedLearning for
// users past an inactivity sequence's threshold who are not enrolled in it yet.
// Thresholds are whole days counted from the start of the hour.
func (s *Scheduler) DetectInactivity(ctx context.Context, at time.Time) (InactivityReport, error) {
	var report InactivityReport
	db := s.db.WithContext(ctx)

	var sequences []sequenceModels.Sequence
	if err := db.Where("is_active = ? AND trigger_type IN ?", true,
		[]string{lifecycle.UserNeverLoggedIn, lifecycle.UserAbandonedLearning}).
		Order("priority DESC, id").Find(&sequences).Error; err != nil {
		return report, apperr.Storage("find inactivity sequences", err)
	}

	for _, seq := range sequences {
		days := seq.TriggerAfterDays
		if days <= 0 {
			days = s.neverLoggedInDays
			if seq.TriggerType == lifecycle.UserAbandonedLearning {
				days = s.abandonedDays
			}
		}
		cutoff := now.With(at.AddDate(0, 0, -days)).BeginningOfHour()
		enrolled := db.Model(&sequenceModels.SequenceEnrollment{}).Select("user_id").Where("sequence_id = ?", seq.ID)
		attrs := map[string]string{"after_days": strconv.Itoa(days), "sequence": seq.Slug}

		switch seq.TriggerType {
		case lifecycle.UserNeverLoggedIn:
			var ids []uint
			if err := db.Model(&models.User{}).
				Where("last_login_at IS NULL AND created_at <= ? AND id NOT IN (?)", cutoff, enrolled).
				Pluck("id", &ids).Error; err != nil {
				return report, apperr.Storage("find users never logged in", err)
			}
			for _, id := range ids {
				s.raise(ctx, lifecycle.Event{Name: seq.TriggerType, UserID: id, OccurredAt: at, Attrs: attrs})
				report.NeverLoggedIn++
			}

		case lifecycle.UserAbandonedLearning:
			var rows []courseModels.Enrollment
			if err := db.Where("status = ? AND COALESCE(last_accessed_at, enrolled_at) <= ? AND user_id NOT IN (?)",
				courseModels.EnrollmentActive, cutoff, enrolled).
				Order("user_id, id").Find(&rows).Error; err != nil {
				return report, apperr.Storage("find abandoned enrollments", err)
			}
			seen := map[uint]bool{}
			for _, r := range rows {
				if seen[r.UserID] {
					continue
				}
				seen[r.UserID] = true
				s.raise(ctx, lifecycle.Event{Name: seq.TriggerType, UserID: r.UserID, CourseID: r.CourseID, OccurredAt: at, Attrs: attrs})
				report.AbandonedLearning++
			}
		}
	}

	s.log.Info("inactivity detection finished", "never_logged_in", report.NeverLoggedIn, "abandoned_learning", report.AbandonedLearning)
	return report, nil
}

func (s *Scheduler) raise(ctx context.Context, ev lifecycle.Event) {
	if err := s.sink.Notify(ctx, ev); err != nil {
		s.log.Error("inactivity event failed", "event", ev.Name, "user_id", ev.UserID, "error", err)
	}
}
