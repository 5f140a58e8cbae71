package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
)

func date(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newEntry(t *testing.T, project, activity string, hours float64, ct budget.ChangeType, validFrom string) budget.Entry {
	t.Helper()
	e, err := budget.NewEntry(project, activity, hours, ct, date(validFrom), "test change", "", "alice")
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	return e
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(context.Background(), "sqlite", filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ledgers returns every Ledger implementation under test.
func ledgers(t *testing.T) map[string]budget.Ledger {
	return map[string]budget.Ledger{
		"memory": NewMemoryLedger(),
		"sqlite": NewSQLLedger(openTestDB(t)),
	}
}

func TestLedger_AsOfAdditivity(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := l.SaveEntry(ctx, newEntry(t, "P1", "Dev", 100, budget.ChangeInitial, "2024-01-01")); err != nil {
				t.Fatalf("SaveEntry: %v", err)
			}
			if _, err := l.SaveEntry(ctx, newEntry(t, "P1", "Dev", 50, budget.ChangeExtension, "2024-03-01")); err != nil {
				t.Fatalf("SaveEntry: %v", err)
			}

			tests := []struct {
				date string
				want float64
			}{
				{"2023-12-01", 0},
				{"2024-02-01", 100},
				{"2024-04-01", 150},
			}
			for _, tt := range tests {
				got, err := l.BudgetAt(ctx, "P1", "Dev", date(tt.date))
				if err != nil {
					t.Fatalf("BudgetAt: %v", err)
				}
				if got != tt.want {
					t.Errorf("BudgetAt(%s) = %v, want %v", tt.date, got, tt.want)
				}
				again, _ := l.BudgetAt(ctx, "P1", "Dev", date(tt.date))
				if again != got {
					t.Errorf("BudgetAt(%s) not idempotent: %v then %v", tt.date, got, again)
				}
			}
		})
	}
}

func TestLedger_RejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			bad := newEntry(t, "P1", "Dev", 10, budget.ChangeInitial, "2024-01-01")
			bad.Hours = -5
			if _, err := l.SaveEntry(ctx, bad); !errors.Is(err, budget.ErrNegativeHours) {
				t.Fatalf("expected ErrNegativeHours, got %v", err)
			}
			bad = newEntry(t, "P1", "Dev", 10, budget.ChangeInitial, "2024-01-01")
			bad.Reason = ""
			if _, err := l.SaveEntry(ctx, bad); !errors.Is(err, budget.ErrEmptyReason) {
				t.Fatalf("expected ErrEmptyReason, got %v", err)
			}
			bad = newEntry(t, "P1", "Dev", 10, budget.ChangeInitial, "2024-01-01")
			bad.ChangeType = "bonus"
			if _, err := l.SaveEntry(ctx, bad); !errors.Is(err, budget.ErrInvalidChangeType) {
				t.Fatalf("expected ErrInvalidChangeType, got %v", err)
			}

			history, err := l.History(ctx, "P1", "")
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(history) != 0 {
				t.Errorf("rejected writes must not persist, got %d entries", len(history))
			}
		})
	}
}

func TestLedger_AllBudgetsAtIsSparse(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			for _, e := range []budget.Entry{
				newEntry(t, "P1", "Dev", 100, budget.ChangeInitial, "2024-01-01"),
				newEntry(t, "P1", "QA", 30, budget.ChangeInitial, "2024-01-10"),
				newEntry(t, "P1", "Ops", 20, budget.ChangeInitial, "2024-06-01"),
				newEntry(t, "P2", "Dev", 80, budget.ChangeInitial, "2024-01-01"),
				newEntry(t, "P3", "Dev", 10, budget.ChangeInitial, "2024-01-01"),
			} {
				if _, err := l.SaveEntry(ctx, e); err != nil {
					t.Fatalf("SaveEntry: %v", err)
				}
			}

			got, err := l.AllBudgetsAt(ctx, []string{"P1", "P2", "P9"}, date("2024-02-01"))
			if err != nil {
				t.Fatalf("AllBudgetsAt: %v", err)
			}
			want := budget.Budgets{
				"P1": {"Dev": 100, "QA": 30},
				"P2": {"Dev": 80},
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("AllBudgetsAt mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLedger_HistoryAndActivities(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			for _, e := range []budget.Entry{
				newEntry(t, "P1", "Dev", 100, budget.ChangeInitial, "2024-01-01"),
				newEntry(t, "P1", "QA", 30, budget.ChangeInitial, "2024-02-01"),
				newEntry(t, "P1", "Dev", 20, budget.ChangeExtension, "2024-03-01"),
				newEntry(t, "P1", "Dev", 90, budget.ChangeCorrection, "2024-03-01"),
			} {
				if _, err := l.SaveEntry(ctx, e); err != nil {
					t.Fatalf("SaveEntry: %v", err)
				}
			}

			history, err := l.History(ctx, "P1", "Dev")
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			var types []budget.ChangeType
			for _, e := range history {
				types = append(types, e.ChangeType)
			}
			wantTypes := []budget.ChangeType{budget.ChangeCorrection, budget.ChangeExtension, budget.ChangeInitial}
			if diff := cmp.Diff(wantTypes, types); diff != "" {
				t.Errorf("history order mismatch (-want +got):\n%s", diff)
			}
			if history[0].ID == 0 || history[0].CreatedAt.IsZero() {
				t.Errorf("ledger must assign id and created_at: %+v", history[0])
			}

			all, _ := l.History(ctx, "P1", "")
			if len(all) != 4 {
				t.Errorf("project history = %d entries, want 4", len(all))
			}

			total, _ := l.BudgetAt(ctx, "P1", "Dev", date("2024-03-01"))
			if total != 90 {
				t.Errorf("correction should restate total: got %v", total)
			}

			activities, err := l.Activities(ctx, "P1")
			if err != nil {
				t.Fatalf("Activities: %v", err)
			}
			if diff := cmp.Diff([]string{"Dev", "QA"}, activities); diff != "" {
				t.Errorf("Activities mismatch: %s", diff)
			}
			empty, _ := l.Activities(ctx, "P9")
			if len(empty) != 0 {
				t.Errorf("unknown project activities = %v", empty)
			}
		})
	}
}

func TestSQLLedger_ReferenceAndStats(t *testing.T) {
	ctx := context.Background()
	l := NewSQLLedger(openTestDB(t))

	e, err := budget.NewEntry("P1", "Dev", 40, budget.ChangeInitial, date("2024-01-01"), "kickoff", "PO-42", "bob")
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	saved, err := l.SaveEntry(ctx, e)
	if err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}
	if saved.ID == 0 {
		t.Error("expected assigned ID")
	}
	if _, err := l.SaveEntry(ctx, newEntry(t, "P2", "Dev", 5, budget.ChangeInitial, "2024-01-01")); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}

	history, _ := l.History(ctx, "P1", "Dev")
	if len(history) != 1 || history[0].ReferenceOrEmpty() != "PO-42" || history[0].CreatedBy != "bob" {
		t.Errorf("unexpected history %+v", history)
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 2 || stats.Projects != 2 || stats.Dialect != DialectSQLite {
		t.Errorf("Stats = %+v", stats)
	}
	if err := l.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenDB_UnsupportedDriver(t *testing.T) {
	if _, err := OpenDB(context.Background(), "oracle", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b IN (?,?)"); got != "a = $1 AND b IN ($2,$3)" {
		t.Errorf("rebind = %q", got)
	}
	lite := &DB{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}
