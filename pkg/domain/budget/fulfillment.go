package budget

// Status is the traffic-light state of booked hours against a budget.
type Status string

const (
	StatusNoTarget   Status = "no_target"
	StatusBookable   Status = "bookable"
	StatusCritical   Status = "critical"
	StatusOverbooked Status = "overbooked"
)

// CriticalThreshold is the fulfillment percentage above which a budget is overbooked.
const CriticalThreshold = 110.0

// Symbol is a one-character marker for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusBookable:
		return "●"
	case StatusCritical:
		return "▲"
	case StatusOverbooked:
		return "✖"
	}
	return "○"
}

// Label is the display name of the status.
func (s Status) Label() string {
	switch s {
	case StatusBookable:
		return "Bookable"
	case StatusCritical:
		return "Critical"
	case StatusOverbooked:
		return "Overbooked"
	}
	return "No target"
}

// Fulfillment returns booked hours as a percentage of target and its status.
func Fulfillment(actual, target float64) (float64, Status) {
	if target <= 0 {
		return 0, StatusNoTarget
	}
	pct := actual * 100 / target
	switch {
	case pct <= 100:
		return pct, StatusBookable
	case pct <= CriticalThreshold:
		return pct, StatusCritical
	default:
		return pct, StatusOverbooked
	}
}

// FulfillmentRow is the dashboard row of one (project, activity).
type FulfillmentRow struct {
	Project     string  `json:"project"`
	Activity    string  `json:"activity"`
	Target      float64 `json:"target_hours"`
	Share       float64 `json:"share_percent"`
	Actual      float64 `json:"actual_hours"`
	Fulfillment float64 `json:"fulfillment_percent"`
	Status      Status  `json:"status"`
}

// NewFulfillmentRow computes fulfillment for a row. projectTarget is the
// project's total budget used for the share column.
func NewFulfillmentRow(project, activity string, target, actual, projectTarget float64) FulfillmentRow {
	pct, status := Fulfillment(actual, target)
	share := 0.0
	if projectTarget > 0 {
		share = target * 100 / projectTarget
	}
	return FulfillmentRow{
		Project:     project,
		Activity:    activity,
		Target:      target,
		Share:       share,
		Actual:      actual,
		Fulfillment: pct,
		Status:      status,
	}
}

// ProjectSummary aggregates the rows of one project.
type ProjectSummary struct {
	Project     string  `json:"project"`
	Target      float64 `json:"target_hours"`
	Actual      float64 `json:"actual_hours"`
	Fulfillment float64 `json:"fulfillment_percent"`
	Status      Status  `json:"status"`
	Activities  int     `json:"activities"`
}

// Summarize totals the rows belonging to project.
func Summarize(project string, rows []FulfillmentRow) ProjectSummary {
	s := ProjectSummary{Project: project}
	for _, r := range rows {
		if r.Project != project {
			continue
		}
		s.Target += r.Target
		s.Actual += r.Actual
		s.Activities++
	}
	s.Fulfillment, s.Status = Fulfillment(s.Actual, s.Target)
	return s
}
