// Package availability decides whether a mechanic can take a job right now.
package availability

import (
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// MaxLocationAge is how stale a mechanic's last known position may be
// before they stop counting as available.
const MaxLocationAge = time.Hour

// Evaluator applies the three availability gates: working-hours schedule,
// location freshness, concurrent-job ceiling.
type Evaluator struct{}

// IsAvailable reports whether the mechanic is usable at the given instant.
// All gates must pass; order matters only for short-circuiting.
func (Evaluator) IsAvailable(m models.Mechanic, now time.Time) bool {
	if m.ScheduleEnabled && !withinSchedule(m.Schedule, now) {
		return false
	}
	if m.LocUpdatedAt.IsZero() || now.Sub(m.LocUpdatedAt) > MaxLocationAge {
		return false
	}
	return m.ActiveJobs < m.MaxActiveJobs
}

// withinSchedule checks today's window at hour granularity: now.Hour() must
// be at or past the start hour and strictly before the end hour.
func withinSchedule(schedule models.WeekSchedule, now time.Time) bool {
	window, ok := schedule[now.Weekday()]
	if !ok {
		return false
	}
	h := now.Hour()
	return h >= window.StartHour && h < window.EndHour
}
