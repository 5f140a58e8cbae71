package wiring

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/config"
	"github.com/felixgeelhaar/budgetcast/pkg/application"
)

// AppServices exposes the application layer services wired together with a workspace.
type AppServices struct {
	Root      string
	Config    *config.Config
	Log       logrus.FieldLogger
	Workspace *Workspace
	Budget    *application.BudgetService
	Forecast  *application.ForecastService
	Override  *application.OverrideService
	Dashboard *application.DashboardService
}

// BuildAppServices opens the workspace for root and constructs every service.
// Callers must Close the result.
func BuildAppServices(ctx context.Context, root string, cfg *config.Config, log logrus.FieldLogger) (*AppServices, error) {
	ws, err := OpenWorkspace(ctx, root, cfg)
	if err != nil {
		return nil, err
	}

	return &AppServices{
		Root:      root,
		Config:    cfg,
		Log:       log,
		Workspace: ws,
		Budget:    application.NewBudgetService(ws.Ledger, log),
		Forecast:  application.NewForecastService(ws.Bookings, ws.Ledger, ws.Overrides, log),
		Override:  application.NewOverrideService(ws.Overrides, cfg.User, log),
		Dashboard: application.NewDashboardService(ws.Bookings, ws.Ledger, log),
	}, nil
}

// Close releases the workspace.
func (s *AppServices) Close() error {
	if s == nil {
		return nil
	}
	return s.Workspace.Close()
}
