package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/budgetcast/pkg/application"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
)

type Server struct {
	mcpServer    *mcp.Server
	budgetSvc    *application.BudgetService
	forecastSvc  *application.ForecastService
	overrideSvc  *application.OverrideService
	dashboardSvc *application.DashboardService
	user         string
	now          func() time.Time
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// mcpErr returns a user-friendly error for MCP clients.
// Internal details are omitted, only the friendly message is returned.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// validationErr passes input errors through so clients can correct the call,
// and hides everything else behind friendly.
func validationErr(err error, friendly string) error {
	for _, target := range []error{
		budget.ErrNegativeHours, budget.ErrEmptyReason, budget.ErrInvalidChangeType,
		budget.ErrEmptyProject, budget.ErrEmptyActivity, budget.ErrEmptyAuthor,
		budget.ErrInvalidValidFrom, override.ErrNegativeHours, override.ErrEmptyProject,
		override.ErrNotFound, override.ErrInvalidKey, booking.ErrNoSource,
	} {
		if errors.Is(err, target) {
			return mcpErr(err.Error())
		}
	}
	return mcpErr(friendly)
}

// NewServer registers the budgetcast tools on top of services.
func NewServer(services *wiring.AppServices) (*Server, error) {
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}

	info := mcp.ServerInfo{
		Name:    "budgetcast",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Budgetcast MCP Server"),
			mcp.WithDescription("Budgetcast exposes sprint velocity forecasts and the budget ledger to MCP clients."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Use tools to forecast budget exhaustion, read or record budget changes, and manage manual velocity overrides."),
		),
		budgetSvc:    services.Budget,
		forecastSvc:  services.Forecast,
		overrideSvc:  services.Override,
		dashboardSvc: services.Dashboard,
		user:         services.Config.User,
		now:          time.Now,
	}

	s.registerTools()
	s.registerSchemaResource()
	return s, nil
}

type ForecastArgs struct {
	Project     string   `json:"project" jsonschema:"description=Project identifier"`
	Activity    string   `json:"activity,omitempty" jsonschema:"description=Activity name; empty forecasts the whole project"`
	AsOf        string   `json:"as_of,omitempty" jsonschema:"description=Reference date (YYYY-MM-DD); defaults to today"`
	ManualHours *float64 `json:"manual_hours,omitempty" jsonschema:"description=Hours per sprint to use instead of the measured velocity"`
}

type BudgetAtArgs struct {
	Project  string `json:"project" jsonschema:"description=Project identifier"`
	Activity string `json:"activity,omitempty" jsonschema:"description=Activity name; empty returns the project total"`
	Date     string `json:"date,omitempty" jsonschema:"description=As-of date (YYYY-MM-DD); defaults to today"`
}

type BudgetsAtArgs struct {
	Projects []string `json:"projects" jsonschema:"description=Project identifiers"`
	Date     string   `json:"date,omitempty" jsonschema:"description=As-of date (YYYY-MM-DD); defaults to today"`
}

type HistoryArgs struct {
	Project  string `json:"project" jsonschema:"description=Project identifier"`
	Activity string `json:"activity,omitempty" jsonschema:"description=Activity name; empty lists every activity"`
}

type ActivitiesArgs struct {
	Project string `json:"project" jsonschema:"description=Project identifier"`
}

type SaveBudgetArgs struct {
	Project    string  `json:"project" jsonschema:"description=Project identifier"`
	Activity   string  `json:"activity" jsonschema:"description=Activity name"`
	Hours      float64 `json:"hours" jsonschema:"description=Non-negative hours of the change"`
	ChangeType string  `json:"change_type" jsonschema:"description=initial, extension, correction or reduction"`
	ValidFrom  string  `json:"valid_from" jsonschema:"description=Date the change takes effect (YYYY-MM-DD)"`
	Reason     string  `json:"reason" jsonschema:"description=Why the budget changes"`
	Reference  string  `json:"reference,omitempty" jsonschema:"description=Ticket or contract reference"`
	CreatedBy  string  `json:"created_by,omitempty" jsonschema:"description=Author; defaults to the configured user"`
	DryRun     bool    `json:"dry_run,omitempty" jsonschema:"description=Preview the resulting budget without saving"`
}

type OverrideArgs struct {
	Project  string `json:"project" jsonschema:"description=Project identifier"`
	Activity string `json:"activity,omitempty" jsonschema:"description=Activity name; empty addresses the project-wide override"`
}

type SetOverrideArgs struct {
	Project  string  `json:"project" jsonschema:"description=Project identifier"`
	Activity string  `json:"activity,omitempty" jsonschema:"description=Activity name; empty sets the project-wide override"`
	Hours    float64 `json:"hours_per_sprint" jsonschema:"description=Manual velocity in hours per sprint"`
	Reason   string  `json:"reason,omitempty" jsonschema:"description=Why the measured velocity is not representative"`
	Active   *bool   `json:"active,omitempty" jsonschema:"description=false keeps the record but switches back to automatic velocity"`
}

type DashboardArgs struct {
	Projects []string `json:"projects" jsonschema:"description=Project identifiers"`
	AsOf     string   `json:"as_of,omitempty" jsonschema:"description=Reference date (YYYY-MM-DD); defaults to today"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("budgetcast_forecast").
		Description("Forecast when a project or activity budget is used up, with optimistic, realistic and pessimistic scenarios").
		Handler(s.handleForecast)

	s.mcpServer.Tool("budgetcast_budget_at").
		Description("Get the budget of an activity, or the project total, as of a date").
		Handler(s.handleBudgetAt)

	s.mcpServer.Tool("budgetcast_budgets_at").
		Description("Get every activity budget of several projects as of a date").
		Handler(s.handleBudgetsAt)

	s.mcpServer.Tool("budgetcast_budget_history").
		Description("List budget ledger entries, newest first").
		Handler(s.handleHistory)

	s.mcpServer.Tool("budgetcast_budget_activities").
		Description("List the activities that have budget entries for a project").
		Handler(s.handleActivities)

	s.mcpServer.Tool("budgetcast_save_budget").
		Description("Record a budget change (initial, extension, correction or reduction) in the append-only ledger").
		Handler(s.handleSaveBudget)

	s.mcpServer.Tool("budgetcast_get_override").
		Description("Get the stored manual velocity override for a project or activity").
		Handler(s.handleGetOverride)

	s.mcpServer.Tool("budgetcast_set_override").
		Description("Set, replace or deactivate the manual velocity override for a project or activity").
		Handler(s.handleSetOverride)

	s.mcpServer.Tool("budgetcast_dashboard").
		Description("Compare booked hours with budgets per activity and report the fulfillment status").
		Handler(s.handleDashboard)
}

func parseDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := booking.ParseDate(value)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Invalid date %q. Use YYYY-MM-DD.", value))
	}
	return &t, nil
}

func (s *Server) dateOrToday(value string) (time.Time, error) {
	t, err := parseDate(value)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return s.now(), nil
	}
	return *t, nil
}

func (s *Server) handleForecast(ctx context.Context, args ForecastArgs) (any, error) {
	asOf, err := parseDate(args.AsOf)
	if err != nil {
		return nil, err
	}
	report, err := s.forecastSvc.Forecast(ctx, application.ForecastRequest{
		ProjectID:   args.Project,
		Activity:    args.Activity,
		AsOf:        asOf,
		ManualHours: args.ManualHours,
	})
	if err != nil {
		return nil, validationErr(err, "Unable to generate forecast. Check the bookings source and the ledger.")
	}
	return report, nil
}

type budgetAtResponse struct {
	Project  string  `json:"project"`
	Activity string  `json:"activity,omitempty"`
	Date     string  `json:"date"`
	Hours    float64 `json:"hours"`
}

func (s *Server) handleBudgetAt(ctx context.Context, args BudgetAtArgs) (any, error) {
	date, err := s.dateOrToday(args.Date)
	if err != nil {
		return nil, err
	}
	var hours float64
	if args.Activity == "" {
		hours, err = s.budgetSvc.ProjectBudgetAt(ctx, args.Project, date)
	} else {
		hours, err = s.budgetSvc.BudgetAt(ctx, args.Project, args.Activity, date)
	}
	if err != nil {
		return nil, validationErr(err, "Unable to read the budget ledger.")
	}
	return budgetAtResponse{
		Project:  args.Project,
		Activity: args.Activity,
		Date:     date.Format(booking.DateLayout),
		Hours:    hours,
	}, nil
}

func (s *Server) handleBudgetsAt(ctx context.Context, args BudgetsAtArgs) (any, error) {
	if len(args.Projects) == 0 {
		return nil, mcpErr("At least one project is required.")
	}
	date, err := s.dateOrToday(args.Date)
	if err != nil {
		return nil, err
	}
	all, err := s.budgetSvc.AllBudgetsAt(ctx, args.Projects, date)
	if err != nil {
		return nil, validationErr(err, "Unable to read the budget ledger.")
	}
	return all, nil
}

func (s *Server) handleHistory(ctx context.Context, args HistoryArgs) (any, error) {
	entries, err := s.budgetSvc.History(ctx, args.Project, args.Activity)
	if err != nil {
		return nil, validationErr(err, "Unable to read the budget history.")
	}
	if entries == nil {
		entries = []budget.Entry{}
	}
	return entries, nil
}

func (s *Server) handleActivities(ctx context.Context, args ActivitiesArgs) (any, error) {
	activities, err := s.budgetSvc.Activities(ctx, args.Project)
	if err != nil {
		return nil, validationErr(err, "Unable to list budget activities.")
	}
	if activities == nil {
		activities = []string{}
	}
	return activities, nil
}

func (s *Server) handleSaveBudget(ctx context.Context, args SaveBudgetArgs) (any, error) {
	validFrom, err := parseDate(args.ValidFrom)
	if err != nil {
		return nil, err
	}
	if validFrom == nil {
		return nil, mcpErr(budget.ErrInvalidValidFrom.Error())
	}
	author := args.CreatedBy
	if author == "" {
		author = s.user
	}
	sub := application.BudgetSubmission{
		ProjectID:  args.Project,
		Activity:   args.Activity,
		Hours:      args.Hours,
		ChangeType: args.ChangeType,
		ValidFrom:  *validFrom,
		Reason:     args.Reason,
		Reference:  args.Reference,
		CreatedBy:  author,
	}
	if args.DryRun {
		preview, err := s.budgetSvc.Preview(ctx, sub)
		if err != nil {
			return nil, validationErr(err, "Unable to preview the budget change.")
		}
		return preview, nil
	}
	entry, err := s.budgetSvc.Submit(ctx, sub)
	if err != nil {
		return nil, validationErr(err, "Unable to save the budget change.")
	}
	return entry, nil
}

type overrideResponse struct {
	Key      string             `json:"key"`
	Override *override.Override `json:"override"`
}

func (s *Server) handleGetOverride(ctx context.Context, args OverrideArgs) (any, error) {
	o, err := s.overrideSvc.Get(ctx, args.Project, args.Activity)
	if err != nil {
		return nil, validationErr(err, "Unable to read forecast overrides.")
	}
	return overrideResponse{Key: override.Key{ProjectID: args.Project, Activity: args.Activity}.String(), Override: o}, nil
}

func (s *Server) handleSetOverride(ctx context.Context, args SetOverrideArgs) (any, error) {
	active := true
	if args.Active != nil {
		active = *args.Active
	}
	o, err := s.overrideSvc.Set(ctx, args.Project, args.Activity, args.Hours, args.Reason, active)
	if err != nil {
		return nil, validationErr(err, "Unable to save the forecast override.")
	}
	return overrideResponse{Key: override.Key{ProjectID: args.Project, Activity: args.Activity}.String(), Override: o}, nil
}

func (s *Server) handleDashboard(ctx context.Context, args DashboardArgs) (any, error) {
	if len(args.Projects) == 0 {
		return nil, mcpErr("At least one project is required.")
	}
	asOf, err := parseDate(args.AsOf)
	if err != nil {
		return nil, err
	}
	d, err := s.dashboardSvc.Build(ctx, args.Projects, asOf)
	if err != nil {
		return nil, validationErr(err, "Unable to build the dashboard.")
	}
	return d, nil
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}
