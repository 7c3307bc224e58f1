package status

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

// Bottleneck is the total time a case spent in one unit.
type Bottleneck struct {
	Unit string  `json:"unit"`
	Days float64 `json:"days"`
}

// ProcessMetrics summarizes the movement history of a case.
type ProcessMetrics struct {
	LeadTimeDays int          `json:"lead_time_days"`
	ReworkCount  int          `json:"rework_count"`
	Bottlenecks  []Bottleneck `json:"bottlenecks"`
	Path         []string     `json:"path"`
}

type timedMovement struct {
	model.Movement
	at time.Time
}

// Metrics computes lead time, rework and per-unit dwell time from the movements of c.
// It returns nil when there are no movements.
//
// Each movement records a case leaving its origin unit for its destination. The time spent
// in a destination is the gap until the next movement; rework counts every repeat visit
// to an origin unit.
func Metrics(c *model.CaseData) *ProcessMetrics {
	if c == nil || len(c.Movements) == 0 {
		return nil
	}

	movs := make([]timedMovement, len(c.Movements))
	for i, m := range c.Movements {
		movs[i] = timedMovement{Movement: m, at: movementTime(m)}
	}
	sort.SliceStable(movs, func(i, j int) bool { return movs[i].at.Before(movs[j].at) })

	lead := movs[len(movs)-1].at.Sub(movs[0].at)
	m := &ProcessMetrics{
		LeadTimeDays: int(math.Ceil(math.Max(0, lead.Hours()) / 24)),
		Path:         make([]string, 0, len(movs)),
	}

	visits := map[string]int{}
	stay := map[string]float64{}
	var order []string
	for i, mv := range movs {
		m.Path = append(m.Path, mv.OriginUnit)
		visits[mv.OriginUnit]++
		if i == len(movs)-1 {
			continue
		}
		days := math.Max(0, movs[i+1].at.Sub(mv.at).Hours()/24)
		if _, ok := stay[mv.DestinationUnit]; !ok {
			order = append(order, mv.DestinationUnit)
		}
		stay[mv.DestinationUnit] += days
	}

	for _, v := range visits {
		if v > 1 {
			m.ReworkCount += v - 1
		}
	}

	m.Bottlenecks = make([]Bottleneck, 0, len(order))
	for _, unit := range order {
		m.Bottlenecks = append(m.Bottlenecks, Bottleneck{Unit: unit, Days: stay[unit]})
	}
	sort.SliceStable(m.Bottlenecks, func(i, j int) bool { return m.Bottlenecks[i].Days > m.Bottlenecks[j].Days })
	return m
}

// movementTime parses a movement's date and time in UTC. Unparseable dates sort first.
func movementTime(m model.Movement) time.Time {
	d, ok := ParseDate(m.Date, time.UTC)
	if !ok {
		return time.Time{}
	}
	hh, mm, found := strings.Cut(strings.TrimSpace(m.Time), ":")
	if !found {
		return d
	}
	h, errH := time.ParseDuration(strings.TrimSpace(hh) + "h")
	mi, errM := time.ParseDuration(strings.TrimSpace(mm) + "m")
	if errH != nil || errM != nil {
		return d
	}
	return d.Add(h + mi)
}
