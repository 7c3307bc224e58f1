// Package status derives read-time classifications for reconciled plan items: the process
// status, the idle-time health score, the internal phase and the document-driven stage.
//
// Every function here is pure and total. Malformed input degrades to a fallback value.
package status

import (
	"strings"
	"time"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

const (
	// GraceDays is how long a case may sit without movement before losing health.
	GraceDays = 15
	// PenaltyPerDay is subtracted for every idle day beyond GraceDays.
	PenaltyPerDay = 5
)

// HealthScore is the idle-time health of a case, in [0, 100].
type HealthScore struct {
	Score    int `json:"score"`
	DaysIdle int `json:"days_idle"`
}

// Health scores date against now. date is DD/MM/YYYY (optionally followed by a time) or
// ISO YYYY-MM-DD. Empty or unparseable dates count as now. Dates in the future count as
// zero idle days.
func Health(date string, now time.Time) HealthScore {
	t, ok := ParseDate(date, now.Location())
	if !ok {
		return HealthScore{Score: 100}
	}
	idle := DaysBetween(t, now)
	if idle < 0 {
		idle = 0
	}
	return HealthScore{Score: scoreFor(idle), DaysIdle: idle}
}

// CaseHealth scores the most recent movement of c, falling back to its filing date.
func CaseHealth(c *model.CaseData, now time.Time) HealthScore {
	return Health(c.LatestMovementDate(), now)
}

func scoreFor(idle int) int {
	if idle <= GraceDays {
		return 100
	}
	score := 100 - (idle-GraceDays)*PenaltyPerDay
	if score < 0 {
		return 0
	}
	return score
}

var dateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses the date formats used by the case system and the registries. The
// calendar date is taken as written, in loc; time of day and zone offset are dropped.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
		}
	}
	// ISO timestamps with fractional seconds or odd zones: the date prefix is enough.
	if len(s) > 10 && s[4] == '-' && s[7] == '-' {
		if t, err := time.ParseInLocation("2006-01-02", s[:10], loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysBetween counts calendar days from a to b; negative when b is before a.
func DaysBetween(a, b time.Time) int {
	loc := b.Location()
	a = a.In(loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 12, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 12, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
