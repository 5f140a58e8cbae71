package wiring

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/config"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
	"github.com/felixgeelhaar/budgetcast/pkg/storage"
)

// Workspace bundles the storage adapters selected by configuration.
type Workspace struct {
	Files     *storage.Workspace
	DB        *storage.DB
	Ledger    budget.Ledger
	SQLLedger *storage.SQLLedger
	Overrides override.Store
	Bookings  booking.Source
}

// OpenWorkspace opens the ledger, override store and booking source for root.
// Relative paths in cfg resolve against root. A missing bookings path leaves
// Bookings nil.
func OpenWorkspace(ctx context.Context, root string, cfg *config.Config) (*Workspace, error) {
	files := storage.NewWorkspace(root)
	ws := &Workspace{Files: files}

	switch cfg.Ledger.Driver {
	case "memory":
		ws.Ledger = storage.NewMemoryLedger()
	default:
		dsn := cfg.Ledger.DSN
		if cfg.Ledger.Driver == string(storage.DialectSQLite) {
			dsn = files.Relative(dsn)
		}
		db, err := storage.OpenDB(ctx, cfg.Ledger.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		ws.DB = db
		ws.SQLLedger = storage.NewSQLLedger(db)
		ws.Ledger = ws.SQLLedger
	}

	switch cfg.Overrides.Backend {
	case "memory":
		ws.Overrides = storage.NewMemoryOverrideStore()
	case "sql":
		if ws.DB == nil {
			_ = ws.Close()
			return nil, fmt.Errorf("overrides backend sql requires a database ledger")
		}
		ws.Overrides = storage.NewSQLOverrideStore(ws.DB)
	default:
		ws.Overrides = storage.NewFileOverrideStore(files.Relative(cfg.Overrides.Path))
	}

	if cfg.Bookings.Path != "" {
		src, err := storage.OpenBookingSource(files.Relative(cfg.Bookings.Path), cfg.Bookings.Format, cfg.Bookings.Columns)
		if err != nil {
			_ = ws.Close()
			return nil, err
		}
		ws.Bookings = src
	}

	return ws, nil
}

// Close releases the database handle, if any.
func (w *Workspace) Close() error {
	if w == nil {
		return nil
	}
	return w.DB.Close()
}
