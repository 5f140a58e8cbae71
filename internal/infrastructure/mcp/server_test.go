package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/config"
	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/logging"
	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/budgetcast/pkg/application"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/forecast"
)

const testBookings = `[
  {"booking_date":"2024-06-28","hours":20,"activity":"Dev","project":"P1"},
  {"booking_date":"2024-06-10","hours":20,"activity":"Dev","project":"P1"},
  {"booking_date":"2024-05-25","hours":10,"activity":"QA","project":"P1"},
  {"booking_date":"2024-05-12","hours":10,"activity":"Dev","project":"P1"}
]`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "bookings.json"), []byte(testBookings), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.User = "mcp-user"
	cfg.Ledger.Driver = "memory"
	cfg.Ledger.DSN = ""
	cfg.Overrides.Backend = "memory"
	cfg.Bookings.Path = "bookings.json"

	services, err := wiring.BuildAppServices(context.Background(), root, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("build services: %v", err)
	}
	t.Cleanup(func() { _ = services.Close() })

	s, err := NewServer(services)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

func seedBudget(t *testing.T, s *Server, activity string, hours float64) {
	t.Helper()
	_, err := s.handleSaveBudget(context.Background(), SaveBudgetArgs{
		Project:    "P1",
		Activity:   activity,
		Hours:      hours,
		ChangeType: "initial",
		ValidFrom:  "2024-05-01",
		Reason:     "kickoff",
	})
	if err != nil {
		t.Fatalf("seed budget: %v", err)
	}
}

func TestNewServer_RequiresServices(t *testing.T) {
	if _, err := NewServer(nil); err == nil {
		t.Fatal("expected error for nil services")
	}
}

func TestServerSaveBudgetAndQueries(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleSaveBudget(ctx, SaveBudgetArgs{
		Project:    "P1",
		Activity:   "Dev",
		Hours:      300,
		ChangeType: "initial",
		ValidFrom:  "2024-05-01",
		Reason:     "kickoff",
		Reference:  "PO-17",
	})
	if err != nil {
		t.Fatalf("save budget: %v", err)
	}
	entry := res.(budget.Entry)
	if entry.CreatedBy != "mcp-user" {
		t.Errorf("CreatedBy = %q, want configured user", entry.CreatedBy)
	}
	seedBudget(t, s, "QA", 100)

	at, err := s.handleBudgetAt(ctx, BudgetAtArgs{Project: "P1", Activity: "Dev", Date: "2024-06-30"})
	if err != nil {
		t.Fatalf("budget at: %v", err)
	}
	if got := at.(budgetAtResponse).Hours; got != 300 {
		t.Errorf("Dev budget = %v, want 300", got)
	}

	total, err := s.handleBudgetAt(ctx, BudgetAtArgs{Project: "P1", Date: "2024-06-30"})
	if err != nil {
		t.Fatalf("project budget at: %v", err)
	}
	if got := total.(budgetAtResponse).Hours; got != 400 {
		t.Errorf("project budget = %v, want 400", got)
	}

	before, err := s.handleBudgetAt(ctx, BudgetAtArgs{Project: "P1", Activity: "Dev", Date: "2024-04-30"})
	if err != nil {
		t.Fatalf("budget before valid_from: %v", err)
	}
	if got := before.(budgetAtResponse).Hours; got != 0 {
		t.Errorf("budget before valid_from = %v, want 0", got)
	}

	all, err := s.handleBudgetsAt(ctx, BudgetsAtArgs{Projects: []string{"P1", "P2"}, Date: "2024-06-30"})
	if err != nil {
		t.Fatalf("budgets at: %v", err)
	}
	budgets := all.(budget.Budgets)
	if budgets.Get("P1", "QA") != 100 || budgets.Has("P2", "Dev") {
		t.Errorf("unexpected budgets %v", budgets)
	}

	hist, err := s.handleHistory(ctx, HistoryArgs{Project: "P1"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if got := len(hist.([]budget.Entry)); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}

	empty, err := s.handleHistory(ctx, HistoryArgs{Project: "P9"})
	if err != nil {
		t.Fatalf("history for unknown project: %v", err)
	}
	data, _ := json.Marshal(empty)
	if string(data) != "[]" {
		t.Errorf("empty history should encode as [], got %s", data)
	}

	acts, err := s.handleActivities(ctx, ActivitiesArgs{Project: "P1"})
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if got := acts.([]string); len(got) != 2 || got[0] != "Dev" || got[1] != "QA" {
		t.Errorf("activities = %v", got)
	}
}

func TestServerSaveBudget_Rejections(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args SaveBudgetArgs
		want string
	}{
		{"negative hours", SaveBudgetArgs{Project: "P1", Activity: "Dev", Hours: -1, ChangeType: "initial", ValidFrom: "2024-05-01", Reason: "x"}, budget.ErrNegativeHours.Error()},
		{"empty reason", SaveBudgetArgs{Project: "P1", Activity: "Dev", Hours: 1, ChangeType: "initial", ValidFrom: "2024-05-01", Reason: "  "}, budget.ErrEmptyReason.Error()},
		{"bad change type", SaveBudgetArgs{Project: "P1", Activity: "Dev", Hours: 1, ChangeType: "bonus", ValidFrom: "2024-05-01", Reason: "x"}, "change type"},
		{"missing date", SaveBudgetArgs{Project: "P1", Activity: "Dev", Hours: 1, ChangeType: "initial", Reason: "x"}, budget.ErrInvalidValidFrom.Error()},
		{"malformed date", SaveBudgetArgs{Project: "P1", Activity: "Dev", Hours: 1, ChangeType: "initial", ValidFrom: "01.05.2024", Reason: "x"}, "Invalid date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleSaveBudget(ctx, tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	hist, err := s.handleHistory(ctx, HistoryArgs{Project: "P1"})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(hist.([]budget.Entry)); n != 0 {
		t.Errorf("rejected changes must not be stored, found %d entries", n)
	}
}

func TestServerSaveBudget_DryRun(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seedBudget(t, s, "Dev", 100)

	res, err := s.handleSaveBudget(ctx, SaveBudgetArgs{
		Project:    "P1",
		Activity:   "Dev",
		Hours:      40,
		ChangeType: "extension",
		ValidFrom:  "2024-06-01",
		Reason:     "change request",
		DryRun:     true,
	})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	preview := res.(*application.BudgetPreview)
	if preview.Current != 100 || preview.Resulting != 140 || preview.Delta != 40 {
		t.Errorf("unexpected preview %+v", preview)
	}

	hist, _ := s.handleHistory(ctx, HistoryArgs{Project: "P1", Activity: "Dev"})
	if n := len(hist.([]budget.Entry)); n != 1 {
		t.Errorf("dry run must not write, history has %d entries", n)
	}
}

func TestServerForecast(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seedBudget(t, s, "Dev", 300)

	res, err := s.handleForecast(ctx, ForecastArgs{Project: "P1", Activity: "Dev", AsOf: "2024-06-30"})
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	report := res.(*application.ForecastReport)
	if report.Forecast.TotalBooked != 50 {
		t.Errorf("TotalBooked = %v, want 50", report.Forecast.TotalBooked)
	}
	if report.Forecast.TargetHours != 300 {
		t.Errorf("TargetHours = %v, want 300", report.Forecast.TargetHours)
	}
	if len(report.Forecast.Scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %d", len(report.Forecast.Scenarios))
	}

	manual := 25.0
	res, err = s.handleForecast(ctx, ForecastArgs{Project: "P1", Activity: "Dev", AsOf: "2024-06-30", ManualHours: &manual})
	if err != nil {
		t.Fatalf("manual forecast: %v", err)
	}
	realistic, _ := res.(*application.ForecastReport).Forecast.Scenario(forecast.ScenarioRealistic)
	if realistic.HoursPerSprint != 25 {
		t.Errorf("realistic hours = %v, want manual 25", realistic.HoursPerSprint)
	}

	if _, err := s.handleForecast(ctx, ForecastArgs{AsOf: "2024-06-30"}); err == nil {
		t.Error("expected error for missing project")
	}
	if _, err := s.handleForecast(ctx, ForecastArgs{Project: "P1", AsOf: "yesterday"}); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestServerOverrides(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleGetOverride(ctx, OverrideArgs{Project: "P1", Activity: "Dev"})
	if err != nil {
		t.Fatalf("get override: %v", err)
	}
	if got := res.(overrideResponse); got.Override != nil || got.Key != "P1::Dev" {
		t.Errorf("expected empty override for P1::Dev, got %+v", got)
	}

	res, err = s.handleSetOverride(ctx, SetOverrideArgs{Project: "P1", Activity: "Dev", Hours: 30, Reason: "new hire"})
	if err != nil {
		t.Fatalf("set override: %v", err)
	}
	o := res.(overrideResponse).Override
	if !o.Active || o.HoursPerSprint != 30 || o.UpdatedBy != "mcp-user" {
		t.Errorf("unexpected override %+v", o)
	}

	inactive := false
	if _, err := s.handleSetOverride(ctx, SetOverrideArgs{Project: "P1", Activity: "Dev", Hours: 30, Reason: "new hire", Active: &inactive}); err != nil {
		t.Fatalf("deactivate override: %v", err)
	}
	res, _ = s.handleGetOverride(ctx, OverrideArgs{Project: "P1", Activity: "Dev"})
	if o := res.(overrideResponse).Override; o == nil || o.Active {
		t.Errorf("expected stored inactive override, got %+v", o)
	}

	if _, err := s.handleSetOverride(ctx, SetOverrideArgs{Project: "P1", Hours: -5}); err == nil {
		t.Error("expected error for negative hours")
	}
}

func TestServerDashboard(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	seedBudget(t, s, "Dev", 46)

	if _, err := s.handleDashboard(ctx, DashboardArgs{}); err == nil {
		t.Error("expected error without projects")
	}

	res, err := s.handleDashboard(ctx, DashboardArgs{Projects: []string{"P1"}, AsOf: "2024-06-30"})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	d := res.(*application.Dashboard)
	if len(d.Rows) != 2 {
		t.Fatalf("expected Dev and QA rows, got %d", len(d.Rows))
	}
	for _, row := range d.Rows {
		switch row.Activity {
		case "Dev":
			if row.Status != budget.StatusCritical {
				t.Errorf("Dev: 50 of 46 hours booked should be critical, got %s", row.Status)
			}
		case "QA":
			if row.Status != budget.StatusNoTarget {
				t.Errorf("QA without budget should be no_target, got %s", row.Status)
			}
		}
	}
}

func TestSchemaResponse(t *testing.T) {
	resp := newSchemaResponse()
	if resp.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %q", resp.SchemaVersion)
	}
	if len(resp.Tools) != 9 {
		t.Errorf("expected 9 tools, got %d", len(resp.Tools))
	}
	if len(resp.ChangeTypes) != 4 || resp.ChangeTypes[0] != "initial" {
		t.Errorf("unexpected change types %v", resp.ChangeTypes)
	}
	if resp.SprintDurationDays != 14 {
		t.Errorf("sprint duration = %d", resp.SprintDurationDays)
	}
}
