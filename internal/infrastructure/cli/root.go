package cli

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	cfgFile     string
	projectPath string
	logLevel    string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "budgetcast",
	Version: Version,
	Short:   "Forecast when project budgets run out based on sprint velocity",
	Long: `Budgetcast forecasts when a project or activity budget will be used up.
It answers:
1. How many hours per sprint is the team booking?
2. When is the remaining budget exhausted in the best, likely and worst case?
3. Which activities are close to or above their budget?`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <project-dir>/.budgetcast/config.yaml, then $HOME/.budgetcast.yaml)")
	RootCmd.PersistentFlags().StringVar(&projectPath, "project-dir", "", "directory holding the .budgetcast workspace (default is the current directory)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides log.level)")
}
