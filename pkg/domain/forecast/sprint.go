// Package forecast turns a booking series and a budget into sprint velocity,
// trend and dated burn-down scenarios.
package forecast

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
)

const (
	// SprintDurationDays is the length of one analysis sprint.
	SprintDurationDays = 14
	// AnalysisSprints is how many of the most recent sprints are retained.
	AnalysisSprints = 4
)

// SprintWeights are indexed oldest to newest: the oldest analysed sprint
// weighs 0.10 and the current sprint 0.40.
var SprintWeights = [AnalysisSprints]float64{0.10, 0.20, 0.30, 0.40}

// Sprint aggregates the bookings of one 14-day window counted back from today.
// Start and End are the earliest and latest booking dates observed in the
// window, not its calendar boundaries.
type Sprint struct {
	Index      int       `json:"sprint_index"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	TotalHours float64   `json:"total_hours"`
	Weight     float64   `json:"weight"`
}

// Label is a human-readable sprint name relative to today.
func (s Sprint) Label() string {
	if s.Index == 0 {
		return "Current sprint"
	}
	return "Sprint -" + strconv.Itoa(s.Index)
}

// WeightForIndex returns the recency weight for a sprint index, or 0 outside
// the analysed range.
func WeightForIndex(index int) float64 {
	if index < 0 || index >= AnalysisSprints {
		return 0
	}
	return SprintWeights[AnalysisSprints-1-index]
}

// SprintIndex buckets a booking date relative to today. Both are compared as
// calendar dates in their own zones, so the time of day and the zone offset
// never move a booking across a sprint boundary. Dates after today produce a
// negative index.
func SprintIndex(today, date time.Time) int {
	daysAgo := int(math.Round(booking.Day(today).Sub(booking.Day(date)).Hours() / 24))
	return floorDiv(daysAgo, SprintDurationDays)
}

// AggregateSprints buckets bookings into the most recent AnalysisSprints
// sprints. Sprints without bookings are absent from the result, which is
// ordered by index (most recent first).
func AggregateSprints(bookings booking.Series, today time.Time) []Sprint {
	byIndex := make(map[int]*Sprint)
	for _, b := range bookings {
		idx := SprintIndex(today, b.Date)
		if idx < 0 || idx >= AnalysisSprints {
			continue
		}
		s, ok := byIndex[idx]
		if !ok {
			s = &Sprint{Index: idx, Start: b.Date, End: b.Date, Weight: WeightForIndex(idx)}
			byIndex[idx] = s
		}
		s.TotalHours += b.Hours
		if b.Date.Before(s.Start) {
			s.Start = b.Date
		}
		if b.Date.After(s.End) {
			s.End = b.Date
		}
	}

	sprints := make([]Sprint, 0, len(byIndex))
	for _, s := range byIndex {
		sprints = append(sprints, *s)
	}
	sort.Slice(sprints, func(i, j int) bool { return sprints[i].Index < sprints[j].Index })
	return sprints
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
