package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/watch"
	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/budgetcast/pkg/application"
	"github.com/felixgeelhaar/budgetcast/pkg/storage"
)

var (
	watchProject  string
	watchActivity string
	watchEvery    string
	watchDebounce time.Duration
	watchOnce     bool
	watchJSON     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the forecast when bookings or overrides change",
	Long: `Watch prints a forecast, then recomputes it whenever the bookings export
or the overrides file changes. With --every it also recomputes on a cron
schedule ("@daily", "@every 1h", "0 8 * * 1-5"), so sprint windows follow the
calendar even when no data changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		req := application.ForecastRequest{ProjectID: watchProject, Activity: watchActivity}
		refresh := func(ctx context.Context, ev watch.Event) {
			printWatchRefresh(ctx, services, req, ev)
		}

		if watchOnce {
			refresh(cmd.Context(), watch.Event{ChangeType: "start", At: time.Now()})
			return nil
		}

		r := watch.NewRefresher(refresh)
		r.Files = watchedFiles(services)
		r.Schedule = watchEvery
		r.Debounce = watchDebounce

		fmt.Printf("Watching %d file(s) for changes", len(r.Files))
		if r.Schedule != "" {
			fmt.Printf(", refreshing on %q", r.Schedule)
		}
		fmt.Println(". Press Ctrl+C to stop.")

		if err := r.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
			return MapError(err)
		}
		return nil
	},
}

func watchedFiles(services *wiring.AppServices) []string {
	files := []string{}
	ws := services.Workspace
	type pather interface{ Path() string }
	if p, ok := ws.Bookings.(pather); ok {
		files = append(files, p.Path())
	}
	if store, ok := ws.Overrides.(*storage.FileOverrideStore); ok {
		files = append(files, store.Path())
	}
	return files
}

func printWatchRefresh(ctx context.Context, services *wiring.AppServices, req application.ForecastRequest, ev watch.Event) {
	report, err := services.Forecast.Forecast(ctx, req)
	if err != nil {
		services.Log.WithError(err).WithField("trigger", ev.ChangeType).Warn("forecast refresh failed")
		fmt.Printf("[%s] forecast failed: %v\n", ev.At.Format("15:04:05"), MapError(err))
		return
	}
	if watchJSON {
		_ = printJSON(report)
		return
	}
	reason := ev.ChangeType
	if ev.Path != "" {
		reason += " " + ev.Path
	}
	fmt.Printf("\n[%s] %s\n", ev.At.Format("15:04:05"), reason)
	_ = outputForecastText(report)
}

func init() {
	watchCmd.Flags().StringVarP(&watchProject, "project", "p", "", "Project identifier")
	watchCmd.Flags().StringVarP(&watchActivity, "activity", "a", "", "Activity name (default: whole project)")
	watchCmd.Flags().StringVar(&watchEvery, "every", "", "Cron schedule for periodic refreshes")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a file change triggers a refresh")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Print one forecast and exit")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Output in JSON format")
	_ = watchCmd.MarkFlagRequired("project")
	RootCmd.AddCommand(watchCmd)
}
