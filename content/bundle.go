// Package content loads declarative YAML bundles of courses and email
// sequences into the database.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
)

// Bundle is one content file. Either list may be empty.
type Bundle struct {
	Courses   []CourseSpec   `yaml:"courses" validate:"dive"`
	Sequences []SequenceSpec `yaml:"sequences" validate:"dive"`
}

type CourseSpec struct {
	Slug            string       `yaml:"slug" validate:"required,max=191"`
	Title           string       `yaml:"title" validate:"notblank"`
	Description     string       `yaml:"description"`
	CertificateType string       `yaml:"certificate_type" validate:"omitempty,oneof=COMPLETION CERTIFICATION MINI_DIPLOMA"`
	Published       *bool        `yaml:"published"`
	Modules         []ModuleSpec `yaml:"modules" validate:"dive"`
}

// ModuleSpec is keyed by its position in the course.
type ModuleSpec struct {
	Title       string       `yaml:"title" validate:"notblank"`
	Description string       `yaml:"description"`
	Published   *bool        `yaml:"published"`
	Certifiable *bool        `yaml:"certifiable"`
	Lessons     []LessonSpec `yaml:"lessons" validate:"dive"`
	Quiz        *QuizSpec    `yaml:"quiz"`
}

type LessonSpec struct {
	Title       string `yaml:"title" validate:"notblank"`
	Description string `yaml:"description"`
	VideoURL    string `yaml:"video_url" validate:"omitempty,url"`
	Text        string `yaml:"text"`
	Optional    bool   `yaml:"optional"`
	FreePreview bool   `yaml:"free_preview"`
	Published   *bool  `yaml:"published"`
}

type QuizSpec struct {
	Title        string         `yaml:"title"`
	PassingScore *int           `yaml:"passing_score" validate:"omitempty,min=0,max=100"`
	MaxAttempts  *int           `yaml:"max_attempts" validate:"omitempty,min=1"`
	Required     *bool          `yaml:"required"`
	Questions    []QuestionSpec `yaml:"questions" validate:"required,min=1,dive"`
}

type QuestionSpec struct {
	Prompt  string       `yaml:"prompt" validate:"notblank"`
	Points  int          `yaml:"points" validate:"omitempty,min=1"`
	Answers []AnswerSpec `yaml:"answers" validate:"required,min=2,dive"`
}

type AnswerSpec struct {
	Text    string `yaml:"text" validate:"notblank"`
	Correct bool   `yaml:"correct"`
}

type SequenceSpec struct {
	Slug             string      `yaml:"slug" validate:"required,max=191"`
	Name             string      `yaml:"name"`
	Trigger          string      `yaml:"trigger" validate:"required"`
	TriggerAfterDays int         `yaml:"trigger_after_days" validate:"min=0"`
	Active           *bool       `yaml:"active"`
	Priority         int         `yaml:"priority"`
	ExitOnReply      bool        `yaml:"exit_on_reply"`
	ExitOnClick      bool        `yaml:"exit_on_click"`
	Emails           []EmailSpec `yaml:"emails" validate:"required,min=1,dive"`
}

type EmailSpec struct {
	Subject    string `yaml:"subject" validate:"notblank"`
	Body       string `yaml:"body" validate:"notblank"`
	DelayDays  int    `yaml:"delay_days" validate:"min=0"`
	DelayHours int    `yaml:"delay_hours" validate:"min=0"`
	SendAtHour *int   `yaml:"send_at_hour" validate:"omitempty,min=0,max=23"`
	Active     *bool  `yaml:"active"`
}

var triggers = map[string]bool{
	lifecycle.UserRegistered:        true,
	lifecycle.UserNeverLoggedIn:     true,
	lifecycle.UserAbandonedLearning: true,
	lifecycle.CourseEnrolled:        true,
	lifecycle.ModuleCompleted:       true,
	lifecycle.CourseCompleted:       true,
	lifecycle.CertificateIssued:     true,
	lifecycle.MiniDiplomaCompleted:  true,
}

// Parse decodes and validates a bundle. Unknown keys are rejected.
func Parse(r io.Reader) (*Bundle, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var b Bundle
	if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
		return nil, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "bundle", Message: err.Error()}}}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func ParseBytes(data []byte) (*Bundle, error) {
	return Parse(bytes.NewReader(data))
}

// Validate checks struct tags plus the rules tags cannot express.
func (b *Bundle) Validate() error {
	if err := apperr.ValidateStruct(b); err != nil {
		return err
	}

	var fields []apperr.FieldError
	courses := map[string]bool{}
	for i, c := range b.Courses {
		if courses[c.Slug] {
			fields = append(fields, apperr.FieldError{Field: fmt.Sprintf("courses[%d].slug", i), Message: "duplicate slug"})
		}
		courses[c.Slug] = true
		for j, m := range c.Modules {
			if m.Quiz == nil {
				continue
			}
			for k, q := range m.Quiz.Questions {
				if !hasCorrect(q.Answers) {
					fields = append(fields, apperr.FieldError{
						Field:   fmt.Sprintf("courses[%d].modules[%d].quiz.questions[%d].answers", i, j, k),
						Message: "needs at least one correct answer",
					})
				}
			}
		}
	}

	sequences := map[string]bool{}
	for i, s := range b.Sequences {
		if sequences[s.Slug] {
			fields = append(fields, apperr.FieldError{Field: fmt.Sprintf("sequences[%d].slug", i), Message: "duplicate slug"})
		}
		sequences[s.Slug] = true
		if !triggers[s.Trigger] {
			fields = append(fields, apperr.FieldError{Field: fmt.Sprintf("sequences[%d].trigger", i), Message: "unknown lifecycle event"})
		}
	}

	if len(fields) > 0 {
		return &apperr.ValidationError{Fields: fields}
	}
	return nil
}

func hasCorrect(answers []AnswerSpec) bool {
	for _, a := range answers {
		if a.Correct {
			return true
		}
	}
	return false
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
