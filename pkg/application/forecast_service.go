package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/analytics"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/forecast"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
)

// ForecastRequest selects what to forecast. An empty Activity forecasts the
// whole project against the sum of its activity budgets.
type ForecastRequest struct {
	ProjectID string
	Activity  string
	// AsOf replaces today for sprint bucketing and budget lookup, and drops
	// bookings after it.
	AsOf *time.Time
	// ManualHours bypasses any stored override.
	ManualHours *float64
}

// ForecastReport is a forecast result with the context it was computed in.
type ForecastReport struct {
	ID           string                  `json:"id"`
	ProjectID    string                  `json:"project_id"`
	Activity     string                  `json:"activity,omitempty"`
	GeneratedAt  time.Time               `json:"generated_at"`
	Forecast     forecast.Result         `json:"forecast"`
	Trend        analytics.VelocityTrend `json:"trend"`
	Stats        analytics.VelocityStats `json:"stats"`
	Override     *override.Override      `json:"override,omitempty"`
	OverrideKey  string                  `json:"override_key,omitempty"`
	Utilization  float64                 `json:"utilization_percent"`
	Reliability  float64                 `json:"reliability_percent"`
	TrendMessage string                  `json:"trend_message,omitempty"`
	Burndown     forecast.Burndown       `json:"burndown"`
	NoTarget     bool                    `json:"no_target"`
	// NoBookings is set when none of the analysed sprints has bookings.
	NoBookings bool `json:"no_bookings"`
}

// ForecastService assembles bookings, budgets and overrides into a forecast.
type ForecastService struct {
	bookings  booking.Source
	ledger    budget.Ledger
	overrides override.Store
	log       logrus.FieldLogger
	now       Clock
}

func NewForecastService(bookings booking.Source, ledger budget.Ledger, overrides override.Store, log logrus.FieldLogger) *ForecastService {
	return &ForecastService{
		bookings:  bookings,
		ledger:    ledger,
		overrides: overrides,
		log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the service clock.
func (s *ForecastService) WithClock(now Clock) *ForecastService {
	s.now = now
	return s
}

// Forecast computes scenarios for a project or activity.
func (s *ForecastService) Forecast(ctx context.Context, req ForecastRequest) (*ForecastReport, error) {
	if req.ProjectID == "" {
		return nil, budget.ErrEmptyProject
	}
	if s.bookings == nil {
		return nil, booking.ErrNoSource
	}

	today := s.now()
	if req.AsOf != nil {
		today = *req.AsOf
	}

	q := booking.Query{Projects: []string{req.ProjectID}, Activity: req.Activity, To: req.AsOf}
	series, err := s.bookings.Bookings(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	target, err := s.targetHours(ctx, req.ProjectID, req.Activity, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}

	report := &ForecastReport{
		ID:          uuid.NewString(),
		ProjectID:   req.ProjectID,
		Activity:    req.Activity,
		GeneratedAt: s.now(),
		NoTarget:    target <= 0,
	}

	manual := req.ManualHours
	if manual == nil && s.overrides != nil {
		key, err := override.NewKey(req.ProjectID, req.Activity)
		if err != nil {
			return nil, err
		}
		o, err := s.overrides.Load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to load forecast override: %w", err)
		}
		if o != nil {
			report.Override = o
			report.OverrideKey = key.String()
			manual = override.ManualHours(o)
		}
	}

	engine := forecast.NewEngine(series, target, forecast.WithToday(today))
	result := engine.CalculateScenarios(manual)

	report.Forecast = result
	report.NoBookings = len(result.Sprints) == 0
	report.Trend = engine.VelocityTrend()
	report.Stats = engine.VelocityStats()
	report.Utilization = result.Utilization()
	report.Reliability = result.Reliability()
	report.TrendMessage = TrendMessage(report.Trend)
	report.Burndown = forecast.NewBurndown(engine.Bookings(), result)

	s.log.WithFields(logrus.Fields{
		"forecast_id": report.ID,
		"project":     req.ProjectID,
		"activity":    req.Activity,
		"base_hours":  result.BaseHoursPerSprint,
		"manual":      result.ManualOverride,
		"sprints":     len(result.Sprints),
	}).Debug("forecast computed")

	return report, nil
}

func (s *ForecastService) targetHours(ctx context.Context, projectID, activity string, date time.Time) (float64, error) {
	if activity != "" {
		return s.ledger.BudgetAt(ctx, projectID, activity, date)
	}
	all, err := s.ledger.AllBudgetsAt(ctx, []string{projectID}, date)
	if err != nil {
		return 0, err
	}
	return all.ProjectTotal(projectID), nil
}

// TrendMessage describes a classified velocity trend, or "" when stable.
func TrendMessage(t analytics.VelocityTrend) string {
	switch t.Direction {
	case analytics.TrendDecreasing:
		return fmt.Sprintf("Sprint velocity is decreasing (%.1fh/sprint). The team may be overloaded or blocked.", t.Slope)
	case analytics.TrendIncreasing:
		return fmt.Sprintf("Sprint velocity is increasing (%.1fh/sprint).", t.Slope)
	}
	return ""
}
