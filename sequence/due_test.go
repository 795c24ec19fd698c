package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourPtr(h int) *int { return &h }

func steps(days ...int) []Step {
	out := make([]Step, 0, len(days))
	for i, d := range days {
		out = append(out, Step{ID: uint(i + 1), DelayDays: d, IsActive: true})
	}
	return out
}

func TestComputeDueStepCumulativeDelay(t *testing.T) {
	enrolled := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	plan := Plan{EnrolledAt: enrolled, Steps: steps(0, 2, 4)}

	due := ComputeDueStep(plan, enrolled)
	assert.Equal(t, StepDue, due.Kind)
	assert.Equal(t, 0, due.Index)
	assert.Equal(t, enrolled, due.DueAt)

	plan.CurrentStep = 1
	due = ComputeDueStep(plan, enrolled.Add(24*time.Hour))
	assert.Equal(t, NotDue, due.Kind)
	assert.Equal(t, enrolled.AddDate(0, 0, 2), due.DueAt)

	due = ComputeDueStep(plan, enrolled.AddDate(0, 0, 3))
	assert.Equal(t, StepDue, due.Kind)
	assert.Equal(t, 1, due.Index)

	plan.CurrentStep = 2
	due = ComputeDueStep(plan, enrolled.AddDate(0, 0, 5))
	assert.Equal(t, NotDue, due.Kind)
	assert.Equal(t, enrolled.AddDate(0, 0, 6), due.DueAt)

	due = ComputeDueStep(plan, enrolled.AddDate(0, 0, 6))
	assert.Equal(t, StepDue, due.Kind)
	assert.Equal(t, 2, due.Index)

	plan.CurrentStep = 3
	assert.Equal(t, Complete, ComputeDueStep(plan, enrolled.AddDate(0, 0, 30)).Kind)
}

func TestComputeDueStepExitOnReply(t *testing.T) {
	enrolled := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	plan := Plan{EnrolledAt: enrolled, CurrentStep: 1, Steps: steps(0, 2, 4), ExitOnReply: true, HasReplied: true}

	for _, d := range []int{0, 2, 3, 30} {
		due := ComputeDueStep(plan, enrolled.AddDate(0, 0, d))
		assert.Equal(t, Exited, due.Kind)
		assert.Equal(t, "replied", due.Reason)
	}

	plan.ExitOnReply = false
	assert.Equal(t, StepDue, ComputeDueStep(plan, enrolled.AddDate(0, 0, 3)).Kind)

	plan.ExitOnClick, plan.HasClicked = true, true
	assert.Equal(t, "clicked", ComputeDueStep(plan, enrolled).Reason)
}

func TestComputeDueStepSendAtHour(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 14:30 UTC is 10:30 in New York during daylight time.
	enrolled := time.Date(2025, time.June, 2, 14, 30, 0, 0, time.UTC)
	plan := Plan{EnrolledAt: enrolled, Location: ny, Steps: []Step{
		{ID: 1, IsActive: true, SendAtHour: hourPtr(10)},
		{ID: 2, DelayDays: 1, IsActive: true, SendAtHour: hourPtr(8)},
	}}

	// Same local hour sends right away.
	assert.Equal(t, enrolled, StepDueAt(plan, 0))

	// The next day's 10:30 local moves forward to 08:00 local the day after.
	want := time.Date(2025, time.June, 4, 8, 0, 0, 0, ny)
	assert.True(t, want.Equal(StepDueAt(plan, 1)), "got %s", StepDueAt(plan, 1).In(ny))

	plan.CurrentStep = 1
	assert.Equal(t, NotDue, ComputeDueStep(plan, time.Date(2025, time.June, 4, 7, 59, 0, 0, ny)).Kind)
	assert.Equal(t, StepDue, ComputeDueStep(plan, time.Date(2025, time.June, 4, 8, 0, 0, 0, ny)).Kind)
}

func TestAlignToHourLaterSameDay(t *testing.T) {
	at := time.Date(2025, time.March, 3, 6, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC), alignToHour(at, 9, nil))
}

func TestComputeDueStepSkipsInactiveStep(t *testing.T) {
	enrolled := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	plan := Plan{EnrolledAt: enrolled, Steps: []Step{{ID: 1, IsActive: true}, {ID: 2, DelayDays: 1, IsActive: false}}}
	plan.CurrentStep = 1

	due := ComputeDueStep(plan, enrolled.AddDate(0, 0, 1))
	assert.Equal(t, StepDue, due.Kind)
	assert.True(t, due.Skip)
}
