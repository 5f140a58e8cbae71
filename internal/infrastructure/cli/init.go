package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/config"
	"github.com/felixgeelhaar/budgetcast/pkg/storage"
)

var (
	initBookings string
	initDriver   string
	initDSN      string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a budgetcast workspace in the project directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		ws := storage.NewWorkspace(root)
		if ws.IsInitialized() {
			return NewCLIError("workspace already initialized", "Edit "+config.Path(root)+" to change settings", nil)
		}

		cfg := config.Default()
		if initBookings != "" {
			cfg.Bookings.Path = initBookings
		}
		if initDriver != "" {
			cfg.Ledger.Driver = initDriver
		}
		if initDSN != "" {
			cfg.Ledger.DSN = initDSN
		}
		if err := cfg.Validate(); err != nil {
			return MapError(err)
		}

		if err := ws.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize workspace: %w", err)
		}
		if err := config.Save(root, cfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		services, err := loadServices(cmd.Context(), root)
		if err != nil {
			return err
		}
		defer services.Close()

		fmt.Printf("Initialized budgetcast workspace in %s\n", ws.Dir())
		fmt.Printf("Ledger: %s (%s)\n", cfg.Ledger.Driver, cfg.Ledger.DSN)
		if cfg.Bookings.Path == "" {
			fmt.Println("Next: set bookings.path in " + config.Path(root))
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initBookings, "bookings", "", "Path to the bookings export (JSON or CSV)")
	initCmd.Flags().StringVar(&initDriver, "driver", "", "Ledger driver: sqlite, postgres or memory")
	initCmd.Flags().StringVar(&initDSN, "dsn", "", "Ledger DSN (sqlite file path or postgres URL)")
	RootCmd.AddCommand(initCmd)
}
