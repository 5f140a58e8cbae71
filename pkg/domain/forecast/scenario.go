package forecast

import (
	"encoding/json"
	"math"
	"time"
)

// ScenarioKey identifies one of the three projections.
type ScenarioKey string

const (
	ScenarioOptimistic  ScenarioKey = "optimistic"
	ScenarioRealistic   ScenarioKey = "realistic"
	ScenarioPessimistic ScenarioKey = "pessimistic"
)

const (
	// DefaultConfidenceFactor is used when dispersion cannot be measured.
	DefaultConfidenceFactor = 0.2
	// ScenarioSpread scales the confidence factor into the scenario band.
	ScenarioSpread = 1.5
	// MinPessimisticHours keeps the pessimistic velocity strictly positive.
	MinPessimisticHours = 0.1
)

// Scenario is one dated projection of when the remaining budget is used up.
// "Optimistic" means the team burns through the budget fastest, so its
// end date is the earliest of the three.
type Scenario struct {
	Key              ScenarioKey `json:"key"`
	Label            string      `json:"confidence_label"`
	Description      string      `json:"description"`
	HoursPerSprint   float64     `json:"hours_per_sprint"`
	SprintsRemaining float64     `json:"sprints_remaining"`
	EndDate          *time.Time  `json:"end_date"`
}

// IsOpenEnded reports whether no exhaustion date can be projected.
func (s Scenario) IsOpenEnded() bool {
	return math.IsInf(s.SprintsRemaining, 1)
}

// DaysRemaining converts the remaining sprints into calendar days.
func (s Scenario) DaysRemaining() float64 {
	return s.SprintsRemaining * SprintDurationDays
}

// MarshalJSON renders an infinite sprints_remaining as null.
func (s Scenario) MarshalJSON() ([]byte, error) {
	type alias Scenario
	out := struct {
		alias
		SprintsRemaining *float64 `json:"sprints_remaining"`
	}{alias: alias(s)}
	if !s.IsOpenEnded() {
		v := s.SprintsRemaining
		out.SprintsRemaining = &v
	}
	return json.Marshal(out)
}

var scenarioText = map[ScenarioKey][2]string{
	ScenarioOptimistic:  {"Optimistic (90% confidence)", "Team works above its average pace"},
	ScenarioRealistic:   {"Realistic (50% confidence)", "Current pace continues"},
	ScenarioPessimistic: {"Pessimistic (10% confidence)", "Delays, vacations, blockers"},
}

// newScenario projects sprints remaining and the exhaustion date.
func newScenario(key ScenarioKey, hoursPerSprint, remaining float64, today time.Time) Scenario {
	text := scenarioText[key]
	s := Scenario{
		Key:            key,
		Label:          text[0],
		Description:    text[1],
		HoursPerSprint: hoursPerSprint,
	}
	if hoursPerSprint <= 0 || remaining <= 0 {
		s.SprintsRemaining = math.Inf(1)
		return s
	}
	s.SprintsRemaining = remaining / hoursPerSprint
	days := s.SprintsRemaining * SprintDurationDays
	end := today.Add(time.Duration(days * 24 * float64(time.Hour)))
	s.EndDate = &end
	return s
}

// Result is the full output of a scenario calculation.
type Result struct {
	Scenarios               []Scenario `json:"scenarios"`
	BaseHoursPerSprint      float64    `json:"base_hours_per_sprint"`
	AutomaticHoursPerSprint float64    `json:"automatic_hours_per_sprint"`
	ManualOverride          bool       `json:"manual_override"`
	ConfidenceFactor        float64    `json:"confidence_factor"`
	TargetHours             float64    `json:"target_hours"`
	TotalBooked             float64    `json:"total_booked"`
	RemainingHours          float64    `json:"remaining_hours"`
	Sprints                 []Sprint   `json:"sprints"`
	Today                   time.Time  `json:"today"`
}

// Scenario looks up a scenario by key.
func (r Result) Scenario(key ScenarioKey) (Scenario, bool) {
	for _, s := range r.Scenarios {
		if s.Key == key {
			return s, true
		}
	}
	return Scenario{}, false
}

// Exhausted reports whether bookings have already used up the budget.
func (r Result) Exhausted() bool {
	return r.RemainingHours <= 0
}

// Utilization is booked hours as a percentage of the target.
func (r Result) Utilization() float64 {
	if r.TargetHours <= 0 {
		return 0
	}
	return r.TotalBooked * 100 / r.TargetHours
}

// Reliability expresses the confidence factor as a 0-100 certainty score.
func (r Result) Reliability() float64 {
	return math.Max(0, math.Min(100, (1-r.ConfidenceFactor)*100))
}
