package forecast

import (
	"math"
	"time"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/analytics"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
)

// Engine computes sprint velocity and scenarios for one booking series and
// budget. It is a pure function of its inputs and safe to discard after use.
type Engine struct {
	bookings    booking.Series
	targetHours float64
	today       time.Time
	sprints     []Sprint
}

// Option configures an Engine.
type Option func(*Engine)

// WithToday pins the reference date sprints are counted back from.
func WithToday(today time.Time) Option {
	return func(e *Engine) {
		e.today = today
	}
}

// NewEngine aggregates bookings into sprints relative to today.
func NewEngine(bookings []booking.Booking, targetHours float64, opts ...Option) *Engine {
	e := &Engine{
		bookings:    booking.Normalize(bookings),
		targetHours: targetHours,
		today:       time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sprints = AggregateSprints(e.bookings, e.today)
	return e
}

// Today returns the reference date.
func (e *Engine) Today() time.Time { return e.today }

// TargetHours returns the budget the engine projects against.
func (e *Engine) TargetHours() float64 { return e.targetHours }

// Bookings returns the normalised booking series.
func (e *Engine) Bookings() booking.Series { return e.bookings }

// Sprints returns the retained sprints, most recent first.
func (e *Engine) Sprints() []Sprint {
	out := make([]Sprint, len(e.sprints))
	copy(out, e.sprints)
	return out
}

// TotalBooked sums every booking, including those outside the analysed sprints.
func (e *Engine) TotalBooked() float64 {
	return e.bookings.TotalHours()
}

// WeightedSprintAverage is the recency-weighted mean of sprint hours.
func (e *Engine) WeightedSprintAverage() float64 {
	if len(e.sprints) == 0 {
		return 0
	}
	var weighted, totalWeight float64
	for _, s := range e.sprints {
		weighted += s.TotalHours * s.Weight
		totalWeight += s.Weight
	}
	if totalWeight == 0 {
		return analytics.Mean(e.sprintHours())
	}
	return weighted / totalWeight
}

// VelocityTrend regresses sprint hours against sprint index.
func (e *Engine) VelocityTrend() analytics.VelocityTrend {
	xs := make([]float64, len(e.sprints))
	for i, s := range e.sprints {
		xs[i] = float64(s.Index)
	}
	return analytics.NewVelocityTrend(xs, e.sprintHours())
}

// VelocityStats summarises the retained sprint hours.
func (e *Engine) VelocityStats() analytics.VelocityStats {
	return analytics.NewVelocityStats(e.sprintHours())
}

// ConfidenceFactor is the relative dispersion of sprint hours around base.
func (e *Engine) ConfidenceFactor(base float64) float64 {
	if len(e.sprints) < 2 || base <= 0 {
		return DefaultConfidenceFactor
	}
	return analytics.SampleStdDev(e.sprintHours()) / base
}

// CalculateScenarios projects the three scenarios. A non-nil manual value
// replaces the weighted average as base velocity, including zero.
func (e *Engine) CalculateScenarios(manual *float64) Result {
	auto := e.WeightedSprintAverage()
	base := auto
	if manual != nil {
		base = *manual
	}
	cf := e.ConfidenceFactor(base)

	totalBooked := e.TotalBooked()
	remaining := math.Max(0, e.targetHours-totalBooked)

	optimistic := base * (1 + ScenarioSpread*cf)
	pessimistic := math.Max(base*(1-ScenarioSpread*cf), MinPessimisticHours)

	return Result{
		Scenarios: []Scenario{
			newScenario(ScenarioOptimistic, optimistic, remaining, e.today),
			newScenario(ScenarioRealistic, base, remaining, e.today),
			newScenario(ScenarioPessimistic, pessimistic, remaining, e.today),
		},
		BaseHoursPerSprint:      base,
		AutomaticHoursPerSprint: auto,
		ManualOverride:          manual != nil,
		ConfidenceFactor:        cf,
		TargetHours:             e.targetHours,
		TotalBooked:             totalBooked,
		RemainingHours:          remaining,
		Sprints:                 e.Sprints(),
		Today:                   e.today,
	}
}

func (e *Engine) sprintHours() []float64 {
	hours := make([]float64, len(e.sprints))
	for i, s := range e.sprints {
		hours[i] = s.TotalHours
	}
	return hours
}
