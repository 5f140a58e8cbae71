package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/config"
	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/logging"
	"github.com/felixgeelhaar/budgetcast/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/budgetcast/pkg/storage"
)

// newSettings prepares a viper instance for root. The config file is the
// --config flag, else the workspace config, else $HOME/.budgetcast.yaml.
func newSettings(root string) *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return v
	}
	if path := config.Path(root); fileExists(path) {
		v.SetConfigFile(path)
		return v
	}
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".budgetcast")
		v.SetConfigType("yaml")
	}
	return v
}

func loadConfig(root string) (*config.Config, error) {
	v := newSettings(root)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func loadServices(ctx context.Context, root string) (*wiring.AppServices, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, MapError(err)
	}
	if needsWorkspace(root, cfg) {
		return nil, MapError(errNotInitialized)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, MapError(err)
	}
	services, err := wiring.BuildAppServices(ctx, root, cfg, log)
	if err != nil {
		return nil, MapError(fmt.Errorf("failed to build services: %w", err))
	}
	return services, nil
}

// needsWorkspace reports whether cfg stores data inside a missing .budgetcast directory.
func needsWorkspace(root string, cfg *config.Config) bool {
	ws := storage.NewWorkspace(root)
	if ws.IsInitialized() {
		return false
	}
	inside := func(path string) bool {
		return path != "" && !filepath.IsAbs(path) && filepath.Dir(filepath.Clean(path)) == storage.WorkspaceDir
	}
	if cfg.Ledger.Driver == "sqlite" && inside(cfg.Ledger.DSN) {
		return true
	}
	return cfg.Overrides.Backend == "file" && inside(cfg.Overrides.Path)
}

func getProjectRoot() (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("invalid project path %q: %w", projectPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

func loadServicesForCurrentDir(ctx context.Context) (*wiring.AppServices, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	return loadServices(ctx, root)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
