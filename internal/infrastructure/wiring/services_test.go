package wiring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/config"
	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/logging"
	"github.com/felixgeelhaar/budgetcast/pkg/application"
	"github.com/felixgeelhaar/budgetcast/pkg/storage"
)

func TestBuildAppServices_SQLite(t *testing.T) {
	root := t.TempDir()
	if err := storage.NewWorkspace(root).Initialize(); err != nil {
		t.Fatal(err)
	}
	bookings := `[{"booking_date":"2024-06-10","hours":8,"activity":"Dev","project":"P1"}]`
	if err := os.WriteFile(filepath.Join(root, "bookings.json"), []byte(bookings), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.User = "alice"
	cfg.Bookings.Path = "bookings.json"

	ctx := context.Background()
	svc, err := BuildAppServices(ctx, root, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("BuildAppServices failed: %v", err)
	}
	defer svc.Close()

	if svc.Workspace.DB == nil || svc.Workspace.SQLLedger == nil {
		t.Fatal("expected sqlite ledger")
	}
	if _, err := os.Stat(filepath.Join(root, storage.WorkspaceDir, storage.LedgerFile)); err != nil {
		t.Errorf("ledger file not created: %v", err)
	}
	if _, ok := svc.Workspace.Overrides.(*storage.FileOverrideStore); !ok {
		t.Errorf("expected file override store, got %T", svc.Workspace.Overrides)
	}
	if svc.Workspace.Bookings == nil {
		t.Fatal("expected booking source")
	}

	_, err = svc.Budget.Submit(ctx, application.BudgetSubmission{
		ProjectID:  "P1",
		Activity:   "Dev",
		Hours:      80,
		ChangeType: "initial",
		ValidFrom:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Reason:     "kickoff",
		CreatedBy:  "alice",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	o, err := svc.Override.Set(ctx, "P1", "Dev", 12, "holiday season", true)
	if err != nil {
		t.Fatalf("override Set failed: %v", err)
	}
	if o.UpdatedBy != "alice" {
		t.Errorf("UpdatedBy = %q, want alice", o.UpdatedBy)
	}

	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	report, err := svc.Forecast.Forecast(ctx, application.ForecastRequest{ProjectID: "P1", Activity: "Dev", AsOf: &asOf})
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if report.Forecast.TargetHours != 80 {
		t.Errorf("TargetHours = %v, want 80", report.Forecast.TargetHours)
	}
	if report.Override == nil {
		t.Error("expected stored override to be applied")
	}
}

func TestBuildAppServices_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Driver = "memory"
	cfg.Ledger.DSN = ""
	cfg.Overrides.Backend = "memory"

	svc, err := BuildAppServices(context.Background(), t.TempDir(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("BuildAppServices failed: %v", err)
	}
	defer svc.Close()

	if svc.Workspace.DB != nil {
		t.Error("memory driver should not open a database")
	}
	if svc.Workspace.Bookings != nil {
		t.Error("bookings should be nil without a path")
	}
	if _, err := svc.Forecast.Forecast(context.Background(), application.ForecastRequest{ProjectID: "P1"}); err == nil {
		t.Error("expected forecast to fail without bookings")
	}
}

func TestOpenWorkspace_SQLOverrides(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Ledger.DSN = filepath.Join(root, "ledger.db")
	cfg.Overrides.Backend = "sql"

	ws, err := OpenWorkspace(context.Background(), root, cfg)
	if err != nil {
		t.Fatalf("OpenWorkspace failed: %v", err)
	}
	defer ws.Close()
	if _, ok := ws.Overrides.(*storage.SQLOverrideStore); !ok {
		t.Errorf("expected sql override store, got %T", ws.Overrides)
	}
}

func TestOpenWorkspace_Errors(t *testing.T) {
	root := t.TempDir()

	t.Run("sql overrides without database", func(t *testing.T) {
		cfg := config.Default()
		cfg.Ledger.Driver = "memory"
		cfg.Overrides.Backend = "sql"
		if _, err := OpenWorkspace(context.Background(), root, cfg); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unknown bookings format", func(t *testing.T) {
		cfg := config.Default()
		cfg.Ledger.Driver = "memory"
		cfg.Overrides.Backend = "memory"
		cfg.Bookings.Path = "bookings.txt"
		if _, err := OpenWorkspace(context.Background(), root, cfg); err == nil {
			t.Error("expected error for unknown extension")
		}
	})
}

func TestHealth(t *testing.T) {
	root := t.TempDir()
	if err := storage.NewWorkspace(root).Initialize(); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()

	svc, err := BuildAppServices(context.Background(), root, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("BuildAppServices failed: %v", err)
	}
	defer svc.Close()

	report := svc.Health(context.Background())
	if report.Status != HealthDegraded {
		t.Fatalf("status = %s, want degraded without bookings: %+v", report.Status, report.Checks)
	}
	if len(report.Checks) != 3 || !report.Checks[0].OK || !report.Checks[1].OK || report.Checks[2].OK {
		t.Errorf("unexpected checks %+v", report.Checks)
	}

	overrides := filepath.Join(root, storage.WorkspaceDir, storage.OverridesFile)
	if err := os.WriteFile(overrides, []byte("overrides: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if report := svc.Health(context.Background()); report.Status != HealthUnhealthy {
		t.Errorf("status = %s, want unhealthy with a corrupt overrides file", report.Status)
	}
}

func TestHealthReport_Add(t *testing.T) {
	r := &HealthReport{}
	r.Add(Check{Name: "a", OK: true})
	if r.Status != HealthHealthy {
		t.Errorf("status = %s", r.Status)
	}
	r.Add(Check{Name: "b", Optional: true})
	if r.Status != HealthDegraded {
		t.Errorf("status = %s", r.Status)
	}
	r.Add(Check{Name: "c"})
	if r.Status != HealthUnhealthy {
		t.Errorf("status = %s", r.Status)
	}
}
