// Package tagging keeps additive segmentation tags on users.
package tagging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MiniDiplomaCompleted = "mini-diploma:completed"
	NeverLoggedIn        = "inactive:never-logged-in"
	AbandonedLearning    = "inactive:abandoned-learning"
)

func Enrolled(slug string) string  { return "enrolled:" + slug }
func Completed(slug string) string { return "completed:" + slug }
func Certified(slug string) string { return "certified:" + slug }
func Lead(landing string) string   { return "lead:" + landing }
func Source(source string) string  { return "source:" + source }

type Service struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, log: log.With("service", "tagging"), now: time.Now}
}

// Tag upserts (user, tag). An existing tag keeps its row and gets the new
// metadata. tx may be nil.
func (s *Service) Tag(ctx context.Context, tx *gorm.DB, userID uint, tag string, metadata map[string]string) error {
	if tx == nil {
		tx = s.db
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "tag", Message: "this field is required"}}}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	row := models.UserTag{UserID: userID, Tag: tag, Metadata: datatypes.JSON(meta)}
	err = tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "tag"}},
		DoUpdates: clause.AssignmentColumns([]string{"metadata", "updated_at"}),
	}).Create(&row).Error
	return apperr.Storage("tag user", err)
}

func (s *Service) Tags(ctx context.Context, userID uint) ([]models.UserTag, error) {
	var tags []models.UserTag
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("tag").Find(&tags).Error; err != nil {
		return nil, apperr.Storage("list user tags", err)
	}
	return tags, nil
}

// UsersWithTag returns the ids of users carrying tag, in ascending order.
func (s *Service) UsersWithTag(ctx context.Context, tag string) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.UserTag{}).
		Where("tag = ?", strings.ToLower(tag)).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, apperr.Storage("find tagged users", err)
	}
	return ids, nil
}

// Notify derives tags from lifecycle events.
func (s *Service) Notify(ctx context.Context, ev lifecycle.Event) error {
	var tags []string
	slug := ev.Attr("course_slug")
	switch ev.Name {
	case lifecycle.CourseEnrolled:
		if slug != "" {
			tags = append(tags, Enrolled(slug))
		}
	case lifecycle.CourseCompleted:
		if slug != "" {
			tags = append(tags, Completed(slug))
		}
	case lifecycle.CertificateIssued:
		if slug != "" && ev.Attr("module_id") == "" {
			tags = append(tags, Certified(slug))
		}
	case lifecycle.MiniDiplomaCompleted:
		tags = append(tags, MiniDiplomaCompleted)
	case lifecycle.UserRegistered:
		if v := ev.Attr("landing"); v != "" {
			tags = append(tags, Lead(v))
		}
		if v := ev.Attr("source"); v != "" {
			tags = append(tags, Source(v))
		}
	case lifecycle.UserNeverLoggedIn:
		tags = append(tags, NeverLoggedIn)
	case lifecycle.UserAbandonedLearning:
		tags = append(tags, AbandonedLearning)
	}
	if len(tags) == 0 {
		return nil
	}

	meta := map[string]string{"event": ev.Name}
	for k, v := range ev.Attrs {
		meta[k] = v
	}
	at := ev.OccurredAt
	if at.IsZero() {
		at = s.now()
	}
	meta["at"] = at.UTC().Format(time.RFC3339)

	for _, tag := range tags {
		if err := s.Tag(ctx, nil, ev.UserID, tag, meta); err != nil {
			return err
		}
	}
	return nil
}

// LeadInput is a mini-diploma or landing page opt-in.
type LeadInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=120"`
	Source   string `json:"source" validate:"max=64"`
	Landing  string `json:"landing" validate:"max=120"`
	Timezone string `json:"timezone" validate:"max=64"`
}

// CaptureLead finds or creates the user by email and tags the lead's source
// and landing page. The bool reports whether the user was created.
func (s *Service) CaptureLead(ctx context.Context, in LeadInput) (*models.User, bool, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Source = strings.ToLower(strings.TrimSpace(in.Source))
	in.Landing = strings.ToLower(strings.TrimSpace(in.Landing))
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, false, err
	}
	if in.Timezone != "" {
		if _, err := time.LoadLocation(in.Timezone); err != nil {
			return nil, false, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "timezone", Message: "unknown time zone"}}}
		}
	}

	var user models.User
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", in.Email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{Name: in.Name, Email: in.Email, Role: models.RoleUser, Source: in.Source, Timezone: in.Timezone}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		}

		meta := map[string]string{"event": "lead.captured", "at": s.now().UTC().Format(time.RFC3339)}
		if in.Source != "" {
			meta["source"] = in.Source
			if err := s.Tag(ctx, tx, user.ID, Source(in.Source), meta); err != nil {
				return err
			}
		}
		if in.Landing != "" {
			meta["landing"] = in.Landing
			if err := s.Tag(ctx, tx, user.ID, Lead(in.Landing), meta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, apperr.Storage("capture lead", err)
	}
	if created {
		s.log.Info("lead captured", "user_id", user.ID, "source", in.Source, "landing", in.Landing)
	}
	return &user, created, nil
}
