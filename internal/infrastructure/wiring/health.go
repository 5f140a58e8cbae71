package wiring

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
)

// HealthStatus summarises a set of checks.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Check is the outcome of one probe. Optional checks only degrade health.
type Check struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Error    string `json:"error,omitempty"`
}

type HealthReport struct {
	Status HealthStatus `json:"status"`
	Checks []Check      `json:"checks"`
}

// Add appends c and recomputes the overall status.
func (r *HealthReport) Add(c Check) {
	r.Checks = append(r.Checks, c)
	r.Status = HealthHealthy
	for _, chk := range r.Checks {
		switch {
		case chk.OK:
		case chk.Optional:
			if r.Status == HealthHealthy {
				r.Status = HealthDegraded
			}
		default:
			r.Status = HealthUnhealthy
		}
	}
}

type overrideChecker interface {
	Check(ctx context.Context) error
}

// Health probes the ledger, the override store and the booking source.
func (s *AppServices) Health(ctx context.Context) *HealthReport {
	report := &HealthReport{Status: HealthHealthy}
	ws := s.Workspace

	ledger := Check{Name: "Budget ledger"}
	if ws.SQLLedger != nil {
		if err := ws.SQLLedger.Ping(ctx); err != nil {
			ledger.Error = err.Error()
		} else if stats, err := ws.SQLLedger.Stats(ctx); err != nil {
			ledger.Error = err.Error()
		} else {
			ledger.OK = true
			ledger.Detail = fmt.Sprintf("%s, %d entries across %d projects", stats.Dialect, stats.Entries, stats.Projects)
		}
	} else {
		ledger.OK = true
		ledger.Detail = "in-memory (entries are not persisted)"
	}
	report.Add(ledger)

	overrides := Check{Name: "Forecast overrides"}
	var err error
	if checker, ok := ws.Overrides.(overrideChecker); ok {
		err = checker.Check(ctx)
	} else {
		_, err = ws.Overrides.Load(ctx, override.Key{ProjectID: "healthcheck"})
	}
	if err != nil {
		overrides.Error = err.Error()
	} else {
		overrides.OK = true
		overrides.Detail = s.Config.Overrides.Backend
	}
	report.Add(overrides)

	bookings := Check{Name: "Bookings source", Optional: true}
	if ws.Bookings == nil {
		bookings.Error = booking.ErrNoSource.Error()
	} else if series, err := ws.Bookings.Bookings(ctx, booking.Query{}); err != nil {
		bookings.Error = err.Error()
	} else {
		bookings.OK = true
		bookings.Detail = fmt.Sprintf("%d bookings, %.1f hours", len(series), series.TotalHours())
	}
	report.Add(bookings)

	return report
}
