package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
)

var (
	overrideProject  string
	overrideActivity string
	overrideHours    float64
	overrideReason   string
	overrideInactive bool
	overrideJSON     bool
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage manual velocity overrides",
	Long: `An override replaces the measured hours per sprint in forecasts, e.g.
during holidays or after staffing changes. An override applies only to the
exact project or project/activity it was set for.`,
}

func printOverride(key override.Key, o *override.Override) error {
	if overrideJSON {
		return printJSON(map[string]any{"key": key.String(), "override": o})
	}
	if o == nil {
		fmt.Printf("%s: automatic velocity (no override stored)\n", key)
		return nil
	}
	state := "active"
	if !o.Active {
		state = "inactive"
	}
	fmt.Printf("%s: %s/sprint (%s)\n", key, formatHours(o.HoursPerSprint), state)
	if o.Reason != "" {
		fmt.Printf("Reason:     %s\n", o.Reason)
	}
	fmt.Printf("Updated:    %s by %s\n", o.UpdatedAt.Format("2006-01-02 15:04"), o.UpdatedBy)
	return nil
}

func overrideKey() override.Key {
	return override.Key{ProjectID: overrideProject, Activity: overrideActivity}
}

var overrideShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored override",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		o, err := services.Override.Get(cmd.Context(), overrideProject, overrideActivity)
		if err != nil {
			return MapError(err)
		}
		return printOverride(overrideKey(), o)
	},
}

var overrideSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the manual hours per sprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		o, err := services.Override.Set(cmd.Context(), overrideProject, overrideActivity, overrideHours, overrideReason, !overrideInactive)
		if err != nil {
			return MapError(fmt.Errorf("set override: %w", err))
		}
		return printOverride(overrideKey(), o)
	},
}

var overrideDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Switch back to automatic velocity, keeping the stored hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleOverride(cmd, false)
	},
}

var overrideEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Re-activate a stored override",
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleOverride(cmd, true)
	},
}

func toggleOverride(cmd *cobra.Command, active bool) error {
	services, err := loadServicesForCurrentDir(cmd.Context())
	if err != nil {
		return err
	}
	defer services.Close()

	var o *override.Override
	if active {
		o, err = services.Override.Enable(cmd.Context(), overrideProject, overrideActivity)
	} else {
		o, err = services.Override.Disable(cmd.Context(), overrideProject, overrideActivity)
	}
	if err != nil {
		return MapError(err)
	}
	return printOverride(overrideKey(), o)
}

func init() {
	for _, c := range []*cobra.Command{overrideShowCmd, overrideSetCmd, overrideDisableCmd, overrideEnableCmd} {
		c.Flags().StringVarP(&overrideProject, "project", "p", "", "Project identifier")
		c.Flags().StringVarP(&overrideActivity, "activity", "a", "", "Activity name (default: project-wide override)")
		c.Flags().BoolVar(&overrideJSON, "json", false, "Output in JSON format")
	}
	overrideSetCmd.Flags().Float64Var(&overrideHours, "hours", 0, "Hours per sprint")
	overrideSetCmd.Flags().StringVar(&overrideReason, "reason", "", "Why the measured velocity is not representative")
	overrideSetCmd.Flags().BoolVar(&overrideInactive, "inactive", false, "Store the override without applying it")

	overrideCmd.AddCommand(overrideShowCmd, overrideSetCmd, overrideDisableCmd, overrideEnableCmd)
	RootCmd.AddCommand(overrideCmd)
}
