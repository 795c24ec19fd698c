package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/mailer"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	sequenceModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/sequence"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RunReport struct {
	Scanned   int `json:"scanned"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	NotDue    int `json:"not_due"`
	Completed int `json:"completed"`
	Exited    int `json:"exited"`
	Duplicate int `json:"duplicate"`
	Failed    int `json:"failed"`
}

type outcome int

const (
	outcomeNotDue outcome = iota
	outcomeSent
	outcomeSkipped
	outcomeCompleted
	outcomeExited
	outcomeDuplicate
)

func (r *RunReport) add(o outcome) {
	switch o {
	case outcomeNotDue:
		r.NotDue++
	case outcomeSent:
		r.Sent++
	case outcomeSkipped:
		r.Skipped++
	case outcomeCompleted:
		r.Completed++
	case outcomeExited:
		r.Exited++
	case outcomeDuplicate:
		r.Duplicate++
	}
}

// RunDue walks every active enrollment and dispatches at most one due step
// each. A failing enrollment is logged and counted; the run continues.
func (s *Scheduler) RunDue(ctx context.Context, at time.Time) (RunReport, error) {
	var report RunReport
	var batch []sequenceModels.SequenceEnrollment

	res := s.db.WithContext(ctx).
		Where("status = ?", sequenceModels.StatusActive).
		FindInBatches(&batch, s.batchSize, func(tx *gorm.DB, n int) error {
			for i := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				report.Scanned++
				o, err := s.processIsolated(ctx, batch[i], at)
				if err != nil {
					report.Failed++
					s.log.Error("sequence enrollment failed", "enrollment_id", batch[i].ID, "user_id", batch[i].UserID, "error", err)
					continue
				}
				report.add(o)
			}
			return nil
		})
	if res.Error != nil {
		return report, apperr.Storage("scan sequence enrollments", res.Error)
	}

	s.log.Info("sequence run finished", "scanned", report.Scanned, "sent", report.Sent,
		"completed", report.Completed, "exited", report.Exited, "failed", report.Failed)
	return report, nil
}

func (s *Scheduler) processIsolated(ctx context.Context, enr sequenceModels.SequenceEnrollment, at time.Time) (o outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.process(ctx, enr, at)
}

func (s *Scheduler) process(ctx context.Context, enr sequenceModels.SequenceEnrollment, at time.Time) (outcome, error) {
	db := s.db.WithContext(ctx)

	var seq sequenceModels.Sequence
	err := db.Preload("Emails", func(db *gorm.DB) *gorm.DB { return db.Order("order_index") }).
		First(&seq, enr.SequenceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.exit(ctx, enr, "sequence deleted", at)
	}
	if err != nil {
		return 0, err
	}
	if !seq.IsActive {
		return outcomeNotDue, nil
	}
	deleted, err := stepDeleted(enr, seq.Emails)
	if err != nil {
		return 0, err
	}
	if deleted {
		return s.exit(ctx, enr, "sequence email deleted", at)
	}

	var user models.User
	if err := db.First(&user, enr.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.exit(ctx, enr, "user deleted", at)
		}
		return 0, err
	}

	plan := Plan{
		EnrolledAt:  enr.EnrolledAt,
		CurrentStep: enr.CurrentStep,
		Location:    s.location(&user),
		ExitOnReply: seq.ExitOnReply,
		ExitOnClick: seq.ExitOnClick,
	}
	for _, e := range seq.Emails {
		plan.Steps = append(plan.Steps, Step{ID: e.ID, DelayDays: e.DelayDays, DelayHours: e.DelayHours, SendAtHour: e.SendAtHour, IsActive: e.IsActive})
	}
	if seq.ExitOnReply {
		if plan.HasReplied, err = s.hasEvent(db, enr, sequenceModels.EventReply); err != nil {
			return 0, err
		}
	}
	if seq.ExitOnClick {
		if plan.HasClicked, err = s.hasEvent(db, enr, sequenceModels.EventClick); err != nil {
			return 0, err
		}
	}

	due := ComputeDueStep(plan, at)
	switch due.Kind {
	case Exited:
		return s.exit(ctx, enr, due.Reason, at)
	case Complete:
		return s.complete(ctx, enr, at)
	case NotDue:
		return outcomeNotDue, nil
	}
	return s.dispatch(ctx, enr, &user, &seq, due, at)
}

// stepDeleted reports whether a step the enrollment was planned with is gone.
// Step indexes and cumulative delays shift once one disappears, so the
// enrollment can no longer be continued. Enrollments without a snapshot only
// check the last dispatched email.
func stepDeleted(enr sequenceModels.SequenceEnrollment, emails []sequenceModels.SequenceEmail) (bool, error) {
	if len(enr.StepEmailIDs) == 0 {
		return enr.LastEmailID != nil && !hasEmail(emails, *enr.LastEmailID), nil
	}
	var ids []uint
	if err := json.Unmarshal(enr.StepEmailIDs, &ids); err != nil {
		return false, fmt.Errorf("decode step snapshot: %w", err)
	}
	for _, id := range ids {
		if !hasEmail(emails, id) {
			return true, nil
		}
	}
	return false, nil
}

func hasEmail(emails []sequenceModels.SequenceEmail, id uint) bool {
	for _, e := range emails {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (s *Scheduler) hasEvent(db *gorm.DB, enr sequenceModels.SequenceEnrollment, kind string) (bool, error) {
	var n int64
	err := db.Model(&sequenceModels.EmailEvent{}).
		Where("user_id = ? AND sequence_id = ? AND type = ? AND occurred_at >= ?", enr.UserID, enr.SequenceID, kind, enr.EnrolledAt).
		Count(&n).Error
	return n > 0, err
}

// dispatch records the sent marker and advances the enrollment in one
// transaction, then hands the email to the mailer. A marker that already
// exists means the step went out before; the enrollment is advanced without
// sending again. Mailer failures are stored on the marker, never rolled back.
func (s *Scheduler) dispatch(ctx context.Context, enr sequenceModels.SequenceEnrollment, user *models.User, seq *sequenceModels.Sequence, due Due, at time.Time) (outcome, error) {
	email := seq.Emails[due.Index]
	vars := templateVars(user, seq, due.Index)
	snapshot, err := json.Marshal(vars)
	if err != nil {
		return 0, err
	}
	last := due.Index == len(seq.Emails)-1

	var marker sequenceModels.SequenceEmailSend
	var duplicate bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker = sequenceModels.SequenceEmailSend{
			UserID:          enr.UserID,
			SequenceEmailID: email.ID,
			EnrollmentID:    enr.ID,
			StepIndex:       due.Index,
			SentAt:          at,
			Skipped:         due.Skip,
			TemplateVars:    datatypes.JSON(snapshot),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&marker)
		if res.Error != nil {
			return res.Error
		}
		duplicate = res.RowsAffected == 0

		updates := map[string]interface{}{
			"current_step":  due.Index + 1,
			"last_email_id": email.ID,
		}
		if !due.Skip && !duplicate {
			updates["last_sent_at"] = at
		}
		if last {
			updates["status"] = sequenceModels.StatusCompleted
			updates["completed_at"] = at
		}
		adv := tx.Model(&sequenceModels.SequenceEnrollment{}).
			Where("id = ? AND current_step = ? AND status = ?", enr.ID, due.Index, sequenceModels.StatusActive).
			Updates(updates)
		if adv.Error != nil {
			return adv.Error
		}
		if adv.RowsAffected == 0 {
			return apperr.ErrDuplicateIssuance
		}
		return nil
	})
	if errors.Is(err, apperr.ErrDuplicateIssuance) {
		return outcomeDuplicate, nil
	}
	if err != nil {
		return 0, err
	}

	if duplicate {
		s.log.Warn("sequence step already sent", "user_id", enr.UserID, "sequence", seq.Slug, "step", due.Index)
		return outcomeDuplicate, nil
	}
	if due.Skip {
		s.log.Debug("inactive sequence step skipped", "user_id", enr.UserID, "sequence", seq.Slug, "step", due.Index)
		return outcomeSkipped, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	ref, sendErr := s.mailer.Send(sendCtx, mailer.Message{
		ToEmail:      user.Email,
		ToName:       user.Name,
		Subject:      email.Subject,
		BodyTemplate: email.BodyTemplate,
		TemplateVars: vars,
	})
	cancel()
	delivery := map[string]interface{}{"delivery_ref": ref}
	if sendErr != nil {
		delivery["error"] = sendErr.Error()
		s.log.Error("sequence email failed", "user_id", enr.UserID, "sequence", seq.Slug, "step", due.Index, "error", sendErr)
	}
	if err := s.db.WithContext(ctx).Model(&sequenceModels.SequenceEmailSend{}).
		Where("id = ?", marker.ID).Updates(delivery).Error; err != nil {
		s.log.Error("failed to record delivery", "marker_id", marker.ID, "error", err)
	}
	return outcomeSent, nil
}

func (s *Scheduler) exit(ctx context.Context, enr sequenceModels.SequenceEnrollment, reason string, at time.Time) (outcome, error) {
	err := s.db.WithContext(ctx).Model(&sequenceModels.SequenceEnrollment{}).
		Where("id = ? AND status = ?", enr.ID, sequenceModels.StatusActive).
		Updates(map[string]interface{}{
			"status":      sequenceModels.StatusExited,
			"exited_at":   at,
			"exit_reason": reason,
		}).Error
	if err != nil {
		return 0, err
	}
	s.log.Info("sequence exited", "user_id", enr.UserID, "sequence_id", enr.SequenceID, "reason", reason)
	return outcomeExited, nil
}

func (s *Scheduler) complete(ctx context.Context, enr sequenceModels.SequenceEnrollment, at time.Time) (outcome, error) {
	err := s.db.WithContext(ctx).Model(&sequenceModels.SequenceEnrollment{}).
		Where("id = ? AND status = ?", enr.ID, sequenceModels.StatusActive).
		Updates(map[string]interface{}{"status": sequenceModels.StatusCompleted, "completed_at": at}).Error
	if err != nil {
		return 0, err
	}
	return outcomeCompleted, nil
}

func templateVars(user *models.User, seq *sequenceModels.Sequence, step int) map[string]string {
	first := strings.TrimSpace(user.Name)
	if i := strings.IndexByte(first, ' '); i > 0 {
		first = first[:i]
	}
	if first == "" {
		first = "there"
	}
	return map[string]string{
		"Name":      user.Name,
		"FirstName": first,
		"Email":     user.Email,
		"Sequence":  seq.Name,
		"Step":      fmt.Sprint(step + 1),
	}
}
