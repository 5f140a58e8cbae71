package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/budgetcast/pkg/application"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
)

var (
	dashboardProjects    []string
	dashboardAsOf        string
	dashboardInteractive bool
	dashboardJSON        bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Compare booked hours with budgets per activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		projects := splitList(dashboardProjects)
		if len(projects) == 0 {
			return MapError(budget.ErrEmptyProject)
		}
		asOf, err := parseDateFlag("as-of", dashboardAsOf)
		if err != nil {
			return err
		}

		services, err := loadServicesForCurrentDir(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		d, err := services.Dashboard.Build(cmd.Context(), projects, asOf)
		if err != nil {
			return MapError(fmt.Errorf("dashboard: %w", err))
		}

		switch {
		case dashboardJSON:
			return printJSON(d)
		case dashboardInteractive:
			p := tea.NewProgram(newDashboardModel(d))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("dashboard run failed: %w", err)
			}
			return nil
		}

		fmt.Println(renderDashboard(d, false))
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringSliceVar(&dashboardProjects, "projects", nil, "Comma-separated project identifiers")
	dashboardCmd.Flags().StringVar(&dashboardAsOf, "as-of", "", "Reference date YYYY-MM-DD (default: today)")
	dashboardCmd.Flags().BoolVarP(&dashboardInteractive, "interactive", "i", false, "Browse the table in a TUI")
	dashboardCmd.Flags().BoolVar(&dashboardJSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(dashboardCmd)
}

// Styles
var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var statusStyles = map[budget.Status]lipgloss.Style{
	budget.StatusBookable:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	budget.StatusCritical:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	budget.StatusOverbooked: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	budget.StatusNoTarget:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

func statusText(s budget.Status) string {
	return s.Symbol() + " " + s.Label()
}

func dashboardTable(d *application.Dashboard, focused bool) table.Model {
	columns := []table.Column{
		{Title: "Project", Width: 12},
		{Title: "Activity", Width: 20},
		{Title: "Budget", Width: 10},
		{Title: "Share", Width: 7},
		{Title: "Booked", Width: 10},
		{Title: "Fulfilled", Width: 9},
		{Title: "Status", Width: 12},
	}

	rows := make([]table.Row, 0, len(d.Rows))
	for _, r := range d.Rows {
		rows = append(rows, table.Row{
			r.Project,
			r.Activity,
			formatHours(r.Target),
			fmt.Sprintf("%.1f%%", r.Share),
			formatHours(r.Actual),
			fmt.Sprintf("%.1f%%", r.Fulfillment),
			statusText(r.Status),
		})
	}

	height := len(rows) + 1
	if focused && height > 15 {
		height = 15
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(focused),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Bold(true)
	if focused {
		s.Selected = s.Selected.Foreground(lipgloss.Color("229"))
	} else {
		s.Selected = lipgloss.NewStyle() // static view
	}
	t.SetStyles(s)
	return t
}

func renderSummaries(d *application.Dashboard) string {
	out := ""
	for _, s := range d.Summaries {
		style := statusStyles[s.Status]
		out += fmt.Sprintf("%-12s %10s of %10s  %6.1f%%  %s (%d activities)\n",
			s.Project, formatHours(s.Actual), formatHours(s.Target), s.Fulfillment,
			style.Render(statusText(s.Status)), s.Activities)
	}
	return out
}

func renderDashboard(d *application.Dashboard, focused bool) string {
	if len(d.Rows) == 0 {
		return fmt.Sprintf("No budgets or bookings found as of %s.", d.AsOf.Format(booking.DateLayout))
	}
	counts := d.Counts()
	legend := fmt.Sprintf("%s %d  %s %d  %s %d  %s %d",
		statusStyles[budget.StatusBookable].Render(budget.StatusBookable.Symbol()), counts[budget.StatusBookable],
		statusStyles[budget.StatusCritical].Render(budget.StatusCritical.Symbol()), counts[budget.StatusCritical],
		statusStyles[budget.StatusOverbooked].Render(budget.StatusOverbooked.Symbol()), counts[budget.StatusOverbooked],
		statusStyles[budget.StatusNoTarget].Render(budget.StatusNoTarget.Symbol()), counts[budget.StatusNoTarget],
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(fmt.Sprintf("Budget fulfillment as of %s", d.AsOf.Format(booking.DateLayout))),
		dashboardTable(d, focused).View(),
		"",
		renderSummaries(d),
		legend,
	)
}

type dashboardModel struct {
	dashboard *application.Dashboard
	table     table.Model
}

func newDashboardModel(d *application.Dashboard) dashboardModel {
	return dashboardModel{dashboard: d, table: dashboardTable(d, true)}
}

func (m dashboardModel) Init() tea.Cmd { return nil }

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m dashboardModel) View() string {
	selected := ""
	if row := m.table.SelectedRow(); row != nil {
		selected = fmt.Sprintf("%s / %s: %s booked of %s", row[0], row[1], row[4], row[2])
	}
	return baseStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			headerStyle.Render(fmt.Sprintf("Budget fulfillment as of %s", m.dashboard.AsOf.Format(booking.DateLayout))),
			m.table.View(),
			selected,
			"",
			renderSummaries(m.dashboard),
			"[q] Quit  [Up/Down] Navigate",
		),
	) + "\n"
}
