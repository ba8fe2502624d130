package availability

import (
	"testing"
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// now is a Wednesday at 10:30 local time.
var now = time.Date(2025, 6, 11, 10, 30, 0, 0, time.UTC)

func workingMechanic() models.Mechanic {
	return models.Mechanic{
		ID:              "m1",
		LocUpdatedAt:    now.Add(-10 * time.Minute),
		MaxActiveJobs:   3,
		ActiveJobs:      1,
		ScheduleEnabled: true,
		Schedule: models.WeekSchedule{
			time.Wednesday: {StartHour: 8, EndHour: 18},
		},
	}
}

func TestAvailableWithinAllGates(t *testing.T) {
	var e Evaluator
	if !e.IsAvailable(workingMechanic(), now) {
		t.Fatal("expected available")
	}
}

func TestStaleLocationNeverAvailable(t *testing.T) {
	var e Evaluator
	m := workingMechanic()
	m.LocUpdatedAt = now.Add(-90 * time.Minute)
	if e.IsAvailable(m, now) {
		t.Fatal("90-minute-old location must fail availability")
	}
}

func TestZeroLocationTimestampUnavailable(t *testing.T) {
	var e Evaluator
	m := workingMechanic()
	m.LocUpdatedAt = time.Time{}
	if e.IsAvailable(m, now) {
		t.Fatal("unknown location age must fail availability")
	}
}

func TestOutsideScheduleHours(t *testing.T) {
	var e Evaluator
	m := workingMechanic()

	early := time.Date(2025, 6, 11, 7, 59, 0, 0, time.UTC)
	m.LocUpdatedAt = early.Add(-time.Minute)
	if e.IsAvailable(m, early) {
		t.Fatal("before start hour must fail")
	}

	atEnd := time.Date(2025, 6, 11, 18, 0, 0, 0, time.UTC)
	m.LocUpdatedAt = atEnd.Add(-time.Minute)
	if e.IsAvailable(m, atEnd) {
		t.Fatal("at end hour must fail")
	}
}

func TestDayOffUnavailable(t *testing.T) {
	var e Evaluator
	m := workingMechanic()
	sunday := time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC)
	m.LocUpdatedAt = sunday.Add(-time.Minute)
	if e.IsAvailable(m, sunday) {
		t.Fatal("day absent from schedule must fail")
	}
}

func TestScheduleDisabledSkipsWindow(t *testing.T) {
	var e Evaluator
	m := workingMechanic()
	m.ScheduleEnabled = false
	midnight := time.Date(2025, 6, 11, 0, 30, 0, 0, time.UTC)
	m.LocUpdatedAt = midnight.Add(-time.Minute)
	if !e.IsAvailable(m, midnight) {
		t.Fatal("disabled schedule should not gate availability")
	}
}

func TestJobCeiling(t *testing.T) {
	var e Evaluator
	m := workingMechanic()
	m.ActiveJobs = m.MaxActiveJobs
	if e.IsAvailable(m, now) {
		t.Fatal("at job ceiling must fail")
	}
}
