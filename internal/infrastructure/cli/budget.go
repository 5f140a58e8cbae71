package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/budgetcast/pkg/application"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
)

var (
	budgetProject   string
	budgetProjects  []string
	budgetActivity  string
	budgetHours     float64
	budgetType      string
	budgetValidFrom string
	budgetReason    string
	budgetReference string
	budgetAuthor    string
	budgetAsOf      string
	budgetDryRun    bool
	budgetJSON      bool
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Record and inspect activity budgets",
	Long: `The budget ledger is append-only. Every change (initial, extension,
correction, reduction) is a new entry with a valid-from date; the budget on a
date folds every entry valid on or before it.`,
}

var budgetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a budget change",
	RunE: func(cmd *cobra.Command, args []string) error {
		validFrom, err := parseDateFlag("valid-from", budgetValidFrom)
		if err != nil {
			return err
		}
		if validFrom == nil {
			return MapError(budget.ErrInvalidValidFrom)
		}

		services, err := loadServicesForCurrentDir(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		author := budgetAuthor
		if author == "" {
			author = services.Config.User
		}
		sub := application.BudgetSubmission{
			ProjectID:  budgetProject,
			Activity:   budgetActivity,
			Hours:      budgetHours,
			ChangeType: budgetType,
			ValidFrom:  *validFrom,
			Reason:     budgetReason,
			Reference:  budgetReference,
			CreatedBy:  author,
		}

		if budgetDryRun {
			preview, err := services.Budget.Preview(cmd.Context(), sub)
			if err != nil {
				return MapError(fmt.Errorf("preview: %w", err))
			}
			if budgetJSON {
				return printJSON(preview)
			}
			fmt.Printf("Preview %s for %s / %s\n", preview.Entry.ChangeType.Label(), preview.Entry.ProjectID, preview.Entry.Activity)
			fmt.Printf("Current budget:   %s\n", formatHours(preview.Current))
			fmt.Printf("Change:           %+.1f h\n", preview.Delta)
			fmt.Printf("Resulting budget: %s\n", formatHours(preview.Resulting))
			return nil
		}

		entry, err := services.Budget.Submit(cmd.Context(), sub)
		if err != nil {
			return MapError(fmt.Errorf("save budget: %w", err))
		}
		if budgetJSON {
			return printJSON(entry)
		}
		fmt.Printf("Recorded %s of %s for %s / %s valid from %s (entry #%d)\n",
			entry.ChangeType.Label(), formatHours(entry.Hours), entry.ProjectID, entry.Activity,
			entry.ValidFrom.Format(booking.DateLayout), entry.ID)
		return nil
	},
}

var budgetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the budget of a project or activity on a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := parseDateFlag("as-of", budgetAsOf)
		if err != nil {
			return err
		}
		date := dateOrToday(asOf)

		services, err := loadServicesForCurrentDir(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		if budgetActivity != "" {
			hours, err := services.Budget.BudgetAt(cmd.Context(), budgetProject, budgetActivity, date)
			if err != nil {
				return MapError(err)
			}
			if budgetJSON {
				return printJSON(map[string]any{
					"project":  budgetProject,
					"activity": budgetActivity,
					"date":     date.Format(booking.DateLayout),
					"hours":    hours,
				})
			}
			fmt.Printf("%s / %s on %s: %s\n", budgetProject, budgetActivity, date.Format(booking.DateLayout), formatHours(hours))
			return nil
		}

		overview, err := services.Budget.Overview(cmd.Context(), []string{budgetProject}, date)
		if err != nil {
			return MapError(err)
		}
		if budgetJSON {
			return printJSON(overview)
		}
		return outputOverviewText(overview)
	},
}

var budgetOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show activity budgets and their share across projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		projects := splitList(budgetProjects)
		if len(projects) == 0 {
			return MapError(budget.ErrEmptyProject)
		}
		asOf, err := parseDateFlag("as-of", budgetAsOf)
		if err != nil {
			return err
		}

		services, err := loadServicesForCurrentDir(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		overview, err := services.Budget.Overview(cmd.Context(), projects, dateOrToday(asOf))
		if err != nil {
			return MapError(err)
		}
		if budgetJSON {
			return printJSON(overview)
		}
		return outputOverviewText(overview)
	},
}

func outputOverviewText(o *application.BudgetOverview) error {
	fmt.Printf("Budgets as of %s\n", o.AsOf.Format(booking.DateLayout))
	fmt.Println("------------------")
	if len(o.Rows) == 0 {
		fmt.Println("No budgets recorded.")
		return nil
	}
	for _, r := range o.Rows {
		fmt.Printf("%-12s %-20s %10s  %5.1f%%\n", r.Project, r.Activity, formatHours(r.Hours), r.Share)
	}
	fmt.Printf("\nProjects: %d  Activities: %d  Total: %s  Mean per activity: %s\n",
		o.Projects, o.Activities, formatHours(o.TotalHours), formatHours(o.MeanPerActivity))
	return nil
}

var budgetHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List budget ledger entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		entries, err := services.Budget.History(cmd.Context(), budgetProject, budgetActivity)
		if err != nil {
			return MapError(err)
		}
		if budgetJSON {
			if entries == nil {
				entries = []budget.Entry{}
			}
			return printJSON(entries)
		}
		outputHistoryText(entries)
		return nil
	},
}

func outputHistoryText(entries []budget.Entry) {
	if len(entries) == 0 {
		fmt.Println("No budget entries.")
		return
	}
	for _, e := range entries {
		ref := ""
		if e.Reference != nil {
			ref = " [" + *e.Reference + "]"
		}
		fmt.Printf("%s  %-12s %-16s %-11s %10s  %s by %s%s\n",
			e.ValidFrom.Format(booking.DateLayout), e.ProjectID, e.Activity, e.ChangeType,
			formatHours(e.Hours), e.Reason, e.CreatedBy, ref)
	}
}

var budgetActivitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List activities with budget entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		activities, err := services.Budget.Activities(cmd.Context(), budgetProject)
		if err != nil {
			return MapError(err)
		}
		if budgetJSON {
			if activities == nil {
				activities = []string{}
			}
			return printJSON(activities)
		}
		for _, a := range activities {
			fmt.Println(a)
		}
		return nil
	},
}

func init() {
	budgetAddCmd.Flags().StringVarP(&budgetProject, "project", "p", "", "Project identifier")
	budgetAddCmd.Flags().StringVarP(&budgetActivity, "activity", "a", "", "Activity name")
	budgetAddCmd.Flags().Float64Var(&budgetHours, "hours", 0, "Hours of the change (>= 0)")
	budgetAddCmd.Flags().StringVar(&budgetType, "type", string(budget.ChangeInitial), "Change type: initial, extension, correction, reduction")
	budgetAddCmd.Flags().StringVar(&budgetValidFrom, "valid-from", time.Now().Format(booking.DateLayout), "Date the change takes effect")
	budgetAddCmd.Flags().StringVar(&budgetReason, "reason", "", "Why the budget changes")
	budgetAddCmd.Flags().StringVar(&budgetReference, "reference", "", "Ticket or contract reference")
	budgetAddCmd.Flags().StringVar(&budgetAuthor, "by", "", "Author (default: configured user)")
	budgetAddCmd.Flags().BoolVar(&budgetDryRun, "dry-run", false, "Preview the resulting budget without saving")
	budgetAddCmd.Flags().BoolVar(&budgetJSON, "json", false, "Output in JSON format")

	budgetShowCmd.Flags().StringVarP(&budgetProject, "project", "p", "", "Project identifier")
	budgetShowCmd.Flags().StringVarP(&budgetActivity, "activity", "a", "", "Activity name (default: all activities)")
	budgetShowCmd.Flags().StringVar(&budgetAsOf, "as-of", "", "Date YYYY-MM-DD (default: today)")
	budgetShowCmd.Flags().BoolVar(&budgetJSON, "json", false, "Output in JSON format")

	budgetOverviewCmd.Flags().StringSliceVar(&budgetProjects, "projects", nil, "Comma-separated project identifiers")
	budgetOverviewCmd.Flags().StringVar(&budgetAsOf, "as-of", "", "Date YYYY-MM-DD (default: today)")
	budgetOverviewCmd.Flags().BoolVar(&budgetJSON, "json", false, "Output in JSON format")

	budgetHistoryCmd.Flags().StringVarP(&budgetProject, "project", "p", "", "Project identifier")
	budgetHistoryCmd.Flags().StringVarP(&budgetActivity, "activity", "a", "", "Activity name (default: all activities)")
	budgetHistoryCmd.Flags().BoolVar(&budgetJSON, "json", false, "Output in JSON format")

	budgetActivitiesCmd.Flags().StringVarP(&budgetProject, "project", "p", "", "Project identifier")
	budgetActivitiesCmd.Flags().BoolVar(&budgetJSON, "json", false, "Output in JSON format")

	budgetCmd.AddCommand(budgetAddCmd, budgetShowCmd, budgetOverviewCmd, budgetHistoryCmd, budgetActivitiesCmd)
	RootCmd.AddCommand(budgetCmd)
}
