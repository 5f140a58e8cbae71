package forecast

import (
	"time"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
)

// ProjectionLine is the straight burn-down segment of one scenario, from the
// hours booked today to the target at the projected end date.
type ProjectionLine struct {
	Key       ScenarioKey `json:"key"`
	Label     string      `json:"label"`
	From      time.Time   `json:"from"`
	To        time.Time   `json:"to"`
	FromHours float64     `json:"from_hours"`
	ToHours   float64     `json:"to_hours"`
}

// Burndown is the chart data behind a forecast.
type Burndown struct {
	TargetHours float64              `json:"target_hours"`
	Actual      []booking.DailyPoint `json:"actual"`
	Projections []ProjectionLine     `json:"projections"`
}

// LastDate is the latest date on the chart, actual or projected.
func (b Burndown) LastDate() time.Time {
	var last time.Time
	if n := len(b.Actual); n > 0 {
		last = b.Actual[n-1].Date
	}
	for _, p := range b.Projections {
		if p.To.After(last) {
			last = p.To
		}
	}
	return last
}

// NewBurndown builds chart data for a series and its scenario result.
// Open-ended scenarios have no projection line.
func NewBurndown(series booking.Series, result Result) Burndown {
	actual := series.DailyCumulative()
	current := 0.0
	if n := len(actual); n > 0 {
		current = actual[n-1].Cumulative
	}

	lines := make([]ProjectionLine, 0, len(result.Scenarios))
	for _, s := range result.Scenarios {
		if s.EndDate == nil {
			continue
		}
		lines = append(lines, ProjectionLine{
			Key:       s.Key,
			Label:     s.Label,
			From:      result.Today,
			To:        *s.EndDate,
			FromHours: current,
			ToHours:   result.TargetHours,
		})
	}

	return Burndown{
		TargetHours: result.TargetHours,
		Actual:      actual,
		Projections: lines,
	}
}
