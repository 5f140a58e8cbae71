package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

// BudgetSubmission is a requested change to the budget ledger.
type BudgetSubmission struct {
	ProjectID  string    `json:"project_id"`
	Activity   string    `json:"activity"`
	Hours      float64   `json:"hours"`
	ChangeType string    `json:"change_type"`
	ValidFrom  time.Time `json:"valid_from"`
	Reason     string    `json:"reason"`
	Reference  string    `json:"reference,omitempty"`
	CreatedBy  string    `json:"created_by"`
}

func (s BudgetSubmission) entry() (budget.Entry, error) {
	ct, err := budget.ParseChangeType(s.ChangeType)
	if err != nil {
		return budget.Entry{}, err
	}
	return budget.NewEntry(s.ProjectID, s.Activity, s.Hours, ct, s.ValidFrom, s.Reason, s.Reference, s.CreatedBy)
}

// BudgetService is the write and query surface of the budget ledger.
type BudgetService struct {
	ledger budget.Ledger
	log    logrus.FieldLogger
	now    Clock
}

func NewBudgetService(ledger budget.Ledger, log logrus.FieldLogger) *BudgetService {
	return &BudgetService{ledger: ledger, log: log, now: time.Now}
}

// WithClock replaces the service clock.
func (s *BudgetService) WithClock(now Clock) *BudgetService {
	s.now = now
	return s
}

// Submit validates and appends a budget change. Invalid submissions are
// rejected before anything is written.
func (s *BudgetService) Submit(ctx context.Context, sub BudgetSubmission) (budget.Entry, error) {
	fields := logrus.Fields{
		"project":     sub.ProjectID,
		"activity":    sub.Activity,
		"hours":       sub.Hours,
		"change_type": sub.ChangeType,
	}
	e, err := sub.entry()
	if err != nil {
		s.log.WithFields(fields).WithError(err).Warn("budget change rejected")
		return budget.Entry{}, err
	}
	saved, err := s.ledger.SaveEntry(ctx, e)
	if err != nil {
		return budget.Entry{}, fmt.Errorf("failed to save budget entry: %w", err)
	}
	s.log.WithFields(fields).WithField("id", saved.ID).Info("budget entry saved")
	return saved, nil
}

// BudgetAt returns the budget of one activity as of date.
func (s *BudgetService) BudgetAt(ctx context.Context, projectID, activity string, date time.Time) (float64, error) {
	return s.ledger.BudgetAt(ctx, projectID, activity, date)
}

// ProjectBudgetAt sums all activity budgets of a project as of date.
func (s *BudgetService) ProjectBudgetAt(ctx context.Context, projectID string, date time.Time) (float64, error) {
	all, err := s.ledger.AllBudgetsAt(ctx, []string{projectID}, date)
	if err != nil {
		return 0, err
	}
	return all.ProjectTotal(projectID), nil
}

// AllBudgetsAt returns the sparse budget map for projects as of date.
func (s *BudgetService) AllBudgetsAt(ctx context.Context, projects []string, date time.Time) (budget.Budgets, error) {
	return s.ledger.AllBudgetsAt(ctx, projects, date)
}

// History lists ledger entries newest first.
func (s *BudgetService) History(ctx context.Context, projectID, activity string) ([]budget.Entry, error) {
	return s.ledger.History(ctx, projectID, activity)
}

// Activities lists the activities with ledger entries for a project.
func (s *BudgetService) Activities(ctx context.Context, projectID string) ([]string, error) {
	return s.ledger.Activities(ctx, projectID)
}

// OverviewRow is one activity budget and its share of the project total.
type OverviewRow struct {
	Project  string  `json:"project"`
	Activity string  `json:"activity"`
	Hours    float64 `json:"hours"`
	Share    float64 `json:"share_percent"`
}

// BudgetOverview summarises budgets across projects.
type BudgetOverview struct {
	AsOf            time.Time     `json:"as_of"`
	Rows            []OverviewRow `json:"rows"`
	Projects        int           `json:"projects"`
	Activities      int           `json:"activities"`
	TotalHours      float64       `json:"total_hours"`
	MeanPerActivity float64       `json:"mean_per_activity"`
}

// Overview builds the budget table for projects as of date.
func (s *BudgetService) Overview(ctx context.Context, projects []string, date time.Time) (*BudgetOverview, error) {
	all, err := s.ledger.AllBudgetsAt(ctx, projects, date)
	if err != nil {
		return nil, err
	}

	o := &BudgetOverview{AsOf: date, Rows: []OverviewRow{}}
	for _, p := range all.Projects() {
		o.Projects++
		for _, a := range all.Activities(p) {
			hours := all.Get(p, a)
			o.Rows = append(o.Rows, OverviewRow{Project: p, Activity: a, Hours: hours, Share: all.Share(p, a)})
			o.TotalHours += hours
		}
	}
	o.Activities = len(o.Rows)
	if o.Activities > 0 {
		o.MeanPerActivity = o.TotalHours / float64(o.Activities)
	}
	return o, nil
}

// BudgetPreview shows the effect of a change before it is submitted.
type BudgetPreview struct {
	Entry     budget.Entry `json:"entry"`
	Current   float64      `json:"current_hours"`
	Resulting float64      `json:"resulting_hours"`
	Delta     float64      `json:"delta_hours"`
}

// Preview folds a validated submission onto today's budget without writing it.
func (s *BudgetService) Preview(ctx context.Context, sub BudgetSubmission) (*BudgetPreview, error) {
	e, err := sub.entry()
	if err != nil {
		return nil, err
	}
	current, err := s.ledger.BudgetAt(ctx, e.ProjectID, e.Activity, s.now())
	if err != nil {
		return nil, err
	}
	resulting := budget.Apply(current, e)
	return &BudgetPreview{Entry: e, Current: current, Resulting: resulting, Delta: resulting - current}, nil
}
