// Package storage persists the budget ledger and forecast overrides and reads
// booking exports from disk.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

const WorkspaceDir = ".budgetcast"
const ConfigFile = "config.yaml"
const LedgerFile = "budget.db"
const OverridesFile = "overrides.yaml"

// defaultRetry is shared by every file and database read.
func defaultRetry() retry.Config {
	return retry.Config{
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		BackoffPolicy: retry.BackoffExponential,
	}
}

// Workspace resolves files inside a project's .budgetcast directory.
type Workspace struct {
	root string
}

func NewWorkspace(root string) *Workspace {
	return &Workspace{root: root}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Dir returns the .budgetcast directory.
func (w *Workspace) Dir() string {
	return filepath.Join(w.root, WorkspaceDir)
}

// ResolvePath ensures the path is a direct child of the .budgetcast directory.
func (w *Workspace) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := w.Dir()
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))

	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

// Initialize creates the .budgetcast directory.
func (w *Workspace) Initialize() error {
	// G301: Use 0700 for directories
	if err := os.MkdirAll(w.Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", WorkspaceDir, err)
	}
	return nil
}

func (w *Workspace) IsInitialized() bool {
	_, err := os.Stat(w.Dir())
	return err == nil
}

// WriteFile writes data to a workspace file with 0600 permissions.
func (w *Workspace) WriteFile(filename string, data []byte) error {
	path, err := w.ResolvePath(filename)
	if err != nil {
		return err
	}
	// G306: Use 0600 for files
	return os.WriteFile(path, data, 0600)
}

// Relative resolves a configured path against the workspace root unless it is absolute.
func (w *Workspace) Relative(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(w.root, path)
}
