package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/budgetcast/pkg/application"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/analytics"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
)

var (
	forecastProject  string
	forecastActivity string
	forecastAsOf     string
	forecastManual   float64
	forecastTrend    bool
	forecastSprints  bool
	forecastBurndown bool
	forecastJSON     bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Predict when a project or activity budget is used up",
	Long: `Forecast projects the date the remaining budget is exhausted, based on
the recency-weighted hours booked in the last four 14-day sprints.

Flags:
  --trend      Show velocity trend analysis
  --sprints    Show the hours booked per sprint
  --burndown   Show burndown chart data
  --json       Output in JSON format`,
	RunE: runForecast,
}

func forecastRequest(cmd *cobra.Command) (application.ForecastRequest, error) {
	asOf, err := parseDateFlag("as-of", forecastAsOf)
	if err != nil {
		return application.ForecastRequest{}, err
	}
	req := application.ForecastRequest{
		ProjectID: forecastProject,
		Activity:  forecastActivity,
		AsOf:      asOf,
	}
	if cmd.Flags().Changed("manual-hours") {
		manual := forecastManual
		req.ManualHours = &manual
	}
	return req, nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	req, err := forecastRequest(cmd)
	if err != nil {
		return err
	}

	services, err := loadServicesForCurrentDir(cmd.Context())
	if err != nil {
		return err
	}
	defer services.Close()

	report, err := services.Forecast.Forecast(cmd.Context(), req)
	if err != nil {
		return MapError(fmt.Errorf("forecast: %w", err))
	}

	if forecastJSON {
		return printJSON(report)
	}
	return outputForecastText(report)
}

func outputForecastText(r *application.ForecastReport) error {
	f := r.Forecast
	title := r.ProjectID
	if r.Activity != "" {
		title += " / " + r.Activity
	}
	fmt.Printf("Budget Forecast: %s\n", title)
	fmt.Println("------------------")
	fmt.Printf("As of:             %s\n", f.Today.Format(booking.DateLayout))
	fmt.Printf("Budget:            %s\n", formatHours(f.TargetHours))
	fmt.Printf("Booked:            %s (%.1f%%)\n", formatHours(f.TotalBooked), r.Utilization)
	fmt.Printf("Remaining:         %s\n", formatHours(f.RemainingHours))
	if f.ManualOverride {
		fmt.Printf("Velocity:          %s/sprint (manual; measured %s)\n", formatHours(f.BaseHoursPerSprint), formatHours(f.AutomaticHoursPerSprint))
		if r.Override != nil && r.Override.Reason != "" {
			fmt.Printf("Override reason:   %s (%s)\n", r.Override.Reason, r.OverrideKey)
		}
	} else {
		fmt.Printf("Velocity:          %s/sprint\n", formatHours(f.BaseHoursPerSprint))
	}
	fmt.Printf("Reliability:       %.0f%%\n", r.Reliability)

	switch {
	case r.NoTarget:
		fmt.Println("\nNo budget recorded. Add one with 'budgetcast budget add'.")
	case f.Exhausted():
		fmt.Println("\nBudget exhausted.")
	case r.NoBookings && !f.ManualOverride:
		fmt.Println("\nUnable to forecast: no bookings in the last four sprints.")
	}

	fmt.Println("\nScenarios")
	fmt.Println("---------")
	for _, s := range f.Scenarios {
		sprints := "n/a"
		if !s.IsOpenEnded() {
			sprints = fmt.Sprintf("%.1f", s.SprintsRemaining)
		}
		fmt.Printf("%-30s %8s/sprint  %6s sprints  %s\n", s.Label, formatHours(s.HoursPerSprint), sprints, formatDate(s.EndDate))
	}

	if forecastSprints {
		fmt.Println("\nSprints")
		fmt.Println("-------")
		if len(f.Sprints) == 0 {
			fmt.Println("No bookings in the analysed sprints.")
		}
		for _, s := range f.Sprints {
			fmt.Printf("%-16s %s - %s  %s  (weight %.2f)\n", s.Label(),
				s.Start.Format(booking.DateLayout), s.End.Format(booking.DateLayout), formatHours(s.TotalHours), s.Weight)
		}
	}

	if forecastTrend {
		fmt.Println("\nVelocity Trend")
		fmt.Println("--------------")
		fmt.Printf("Direction:  %s\n", formatTrendDirection(r.Trend.Direction))
		fmt.Printf("Slope:      %+.1f h/sprint\n", r.Trend.Slope)
		if r.Stats.Samples > 0 {
			fmt.Printf("Mean:       %s (min %s, max %s)\n", formatHours(r.Stats.Mean), formatHours(r.Stats.Min), formatHours(r.Stats.Max))
		}
	}

	if forecastBurndown && len(r.Burndown.Actual) > 0 {
		fmt.Println("\nBurndown Chart")
		fmt.Println("--------------")
		for _, p := range r.Burndown.Actual {
			fmt.Printf("%s: %7.1f\n", p.Date.Format(booking.DateLayout), p.Cumulative)
		}
		for _, p := range r.Burndown.Projections {
			fmt.Printf("%s: %7.1f (projected, %s)\n", p.To.Format(booking.DateLayout), p.ToHours, p.Key)
		}
	}

	if r.TrendMessage != "" {
		fmt.Printf("\nWarning: %s\n", r.TrendMessage)
	}
	return nil
}

func formatTrendDirection(d analytics.TrendDirection) string {
	switch d {
	case analytics.TrendIncreasing:
		return "Increasing"
	case analytics.TrendDecreasing:
		return "Decreasing (slowing)"
	case analytics.TrendStable:
		return "Stable"
	case analytics.TrendInsufficientData:
		return "Not enough sprints"
	default:
		return string(d)
	}
}

func init() {
	forecastCmd.Flags().StringVarP(&forecastProject, "project", "p", "", "Project identifier")
	forecastCmd.Flags().StringVarP(&forecastActivity, "activity", "a", "", "Activity name (default: whole project)")
	forecastCmd.Flags().StringVar(&forecastAsOf, "as-of", "", "Reference date YYYY-MM-DD (default: today)")
	forecastCmd.Flags().Float64Var(&forecastManual, "manual-hours", 0, "Hours per sprint to use instead of the measured velocity")
	forecastCmd.Flags().BoolVar(&forecastTrend, "trend", false, "Show velocity trend analysis")
	forecastCmd.Flags().BoolVar(&forecastSprints, "sprints", false, "Show hours per sprint")
	forecastCmd.Flags().BoolVar(&forecastBurndown, "burndown", false, "Show burndown chart data")
	forecastCmd.Flags().BoolVar(&forecastJSON, "json", false, "Output in JSON format")
	_ = forecastCmd.MarkFlagRequired("project")
	RootCmd.AddCommand(forecastCmd)
}
