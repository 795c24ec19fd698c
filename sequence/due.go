package sequence

import (
	"time"

	"github.com/jinzhu/now"
)

type DueKind int

const (
	NotDue DueKind = iota
	StepDue
	Complete
	Exited
)

func (k DueKind) String() string {
	switch k {
	case NotDue:
		return "not_due"
	case StepDue:
		return "step_due"
	case Complete:
		return "complete"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Step is the scheduling view of one sequence email.
type Step struct {
	ID         uint
	DelayDays  int
	DelayHours int
	SendAtHour *int
	IsActive   bool
}

// Plan is everything ComputeDueStep needs about one enrollment.
type Plan struct {
	EnrolledAt  time.Time
	CurrentStep int
	Steps       []Step
	Location    *time.Location

	ExitOnReply bool
	ExitOnClick bool
	HasReplied  bool
	HasClicked  bool
}

type Due struct {
	Kind  DueKind
	Index int
	DueAt time.Time
	// Skip marks an inactive step: advance past it without sending.
	Skip bool
	// Reason names the exit condition for Exited.
	Reason string
}

// ComputeDueStep decides what the enrollment should do at now. Exit conditions
// are checked first. Step N is due once now reaches the enrollment time plus the
// delays of steps 0..N, moved forward to the step's local send hour.
func ComputeDueStep(plan Plan, at time.Time) Due {
	switch {
	case plan.ExitOnReply && plan.HasReplied:
		return Due{Kind: Exited, Index: plan.CurrentStep, Reason: "replied"}
	case plan.ExitOnClick && plan.HasClicked:
		return Due{Kind: Exited, Index: plan.CurrentStep, Reason: "clicked"}
	}
	if plan.CurrentStep >= len(plan.Steps) {
		return Due{Kind: Complete, Index: plan.CurrentStep}
	}

	idx := plan.CurrentStep
	dueAt := StepDueAt(plan, idx)
	if at.Before(dueAt) {
		return Due{Kind: NotDue, Index: idx, DueAt: dueAt}
	}
	return Due{Kind: StepDue, Index: idx, DueAt: dueAt, Skip: !plan.Steps[idx].IsActive}
}

// StepDueAt is the send time of step idx.
func StepDueAt(plan Plan, idx int) time.Time {
	at := plan.EnrolledAt
	for i := 0; i <= idx && i < len(plan.Steps); i++ {
		at = at.Add(time.Duration(plan.Steps[i].DelayDays)*24*time.Hour + time.Duration(plan.Steps[i].DelayHours)*time.Hour)
	}
	if idx < len(plan.Steps) && plan.Steps[idx].SendAtHour != nil {
		at = alignToHour(at, *plan.Steps[idx].SendAtHour, plan.Location)
	}
	return at
}

// alignToHour returns t when its local hour is hour, otherwise the next local hour:00.
func alignToHour(t time.Time, hour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if local.Hour() == hour {
		return t
	}
	day := now.With(local).BeginningOfDay()
	next := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(day.Year(), day.Month(), day.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}
