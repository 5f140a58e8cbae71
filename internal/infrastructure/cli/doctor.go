package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/config"
	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/wiring"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of the budgetcast environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}

		report := &wiring.HealthReport{Status: wiring.HealthHealthy}
		cfgCheck := wiring.Check{Name: "Configuration"}
		cfg, err := loadConfig(root)
		if err != nil {
			cfgCheck.Error = err.Error()
		} else {
			cfgCheck.OK = true
			cfgCheck.Detail = config.Path(root)
		}
		report.Add(cfgCheck)

		if cfg != nil {
			services, err := loadServices(cmd.Context(), root)
			if err != nil {
				report.Add(wiring.Check{Name: "Workspace", Error: err.Error()})
			} else {
				defer services.Close()
				report.Add(wiring.Check{Name: "Workspace", OK: true, Detail: root})
				for _, c := range services.Health(cmd.Context()).Checks {
					report.Add(c)
				}
			}
		}

		if doctorJSON {
			if err := printJSON(report); err != nil {
				return err
			}
		} else {
			fmt.Println("Running budgetcast doctor...")
			for _, c := range report.Checks {
				fmt.Printf("Checking %s... ", c.Name)
				switch {
				case c.OK:
					fmt.Printf("PASS")
					if c.Detail != "" {
						fmt.Printf(" (%s)", c.Detail)
					}
					fmt.Println()
				case c.Optional:
					fmt.Printf("WARN\n  %s\n", c.Error)
				default:
					fmt.Printf("FAIL\n  Error: %s\n", c.Error)
				}
			}
			fmt.Printf("\nStatus: %s\n", report.Status)
		}

		if report.Status == wiring.HealthUnhealthy {
			return fmt.Errorf("doctor found issues")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(doctorCmd)
}
