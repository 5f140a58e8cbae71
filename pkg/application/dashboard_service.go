package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
)

// Dashboard is the fulfillment table across projects.
type Dashboard struct {
	AsOf      time.Time               `json:"as_of"`
	Rows      []budget.FulfillmentRow `json:"rows"`
	Summaries []budget.ProjectSummary `json:"summaries"`
}

// Counts tallies rows by status.
func (d *Dashboard) Counts() map[budget.Status]int {
	out := make(map[budget.Status]int)
	for _, r := range d.Rows {
		out[r.Status]++
	}
	return out
}

// DashboardService compares ledger budgets with booked hours.
type DashboardService struct {
	bookings booking.Source
	ledger   budget.Ledger
	log      logrus.FieldLogger
	now      Clock
}

func NewDashboardService(bookings booking.Source, ledger budget.Ledger, log logrus.FieldLogger) *DashboardService {
	return &DashboardService{bookings: bookings, ledger: ledger, log: log, now: time.Now}
}

// WithClock replaces the service clock.
func (s *DashboardService) WithClock(now Clock) *DashboardService {
	s.now = now
	return s
}

// Build computes one row per booked or budgeted activity of projects as of
// asOf, or today when nil.
func (s *DashboardService) Build(ctx context.Context, projects []string, asOf *time.Time) (*Dashboard, error) {
	if s.bookings == nil {
		return nil, booking.ErrNoSource
	}
	date := s.now()
	if asOf != nil {
		date = *asOf
	}

	budgets, err := s.ledger.AllBudgetsAt(ctx, projects, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}
	series, err := s.bookings.Bookings(ctx, booking.Query{Projects: projects, To: asOf})
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	actuals := series.ActualHours()

	d := &Dashboard{AsOf: date, Rows: []budget.FulfillmentRow{}, Summaries: []budget.ProjectSummary{}}
	for _, p := range projects {
		activities := make(map[string]bool)
		for _, a := range budgets.Activities(p) {
			activities[a] = true
		}
		for a := range actuals[p] {
			activities[a] = true
		}
		if len(activities) == 0 {
			continue
		}
		names := make([]string, 0, len(activities))
		for a := range activities {
			names = append(names, a)
		}
		sort.Strings(names)

		projectTarget := budgets.ProjectTotal(p)
		for _, a := range names {
			d.Rows = append(d.Rows, budget.NewFulfillmentRow(p, a, budgets.Get(p, a), actuals[p][a], projectTarget))
		}
		d.Summaries = append(d.Summaries, budget.Summarize(p, d.Rows))
	}

	s.log.WithFields(logrus.Fields{
		"projects": len(projects),
		"rows":     len(d.Rows),
	}).Debug("dashboard built")
	return d, nil
}
