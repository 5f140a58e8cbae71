package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	return buf.String()
}

func withTempDir(t *testing.T) (string, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "budgetcast-cli-test-*")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	return dir, func() {
		_ = os.Chdir(old)
		_ = os.RemoveAll(dir)
	}
}

// resetFlags restores every command flag variable to its default.
func resetFlags() {
	cfgFile, projectPath, logLevel = "", "", ""

	forecastProject, forecastActivity, forecastAsOf = "", "", ""
	forecastManual = 0
	forecastTrend, forecastSprints, forecastBurndown, forecastJSON = false, false, false, false
	if f := forecastCmd.Flags().Lookup("manual-hours"); f != nil {
		f.Changed = false
	}

	budgetProject, budgetActivity, budgetReason, budgetReference, budgetAuthor, budgetAsOf = "", "", "", "", "", ""
	budgetProjects = nil
	budgetHours = 0
	budgetType = "initial"
	budgetValidFrom = time.Now().Format("2006-01-02")
	budgetDryRun, budgetJSON = false, false

	overrideProject, overrideActivity, overrideReason = "", "", ""
	overrideHours = 0
	overrideInactive, overrideJSON = false, false

	dashboardProjects = nil
	dashboardAsOf = ""
	dashboardInteractive, dashboardJSON = false, false

	initBookings, initDriver, initDSN = "", "", ""
	doctorJSON = false

	watchProject, watchActivity, watchEvery = "", "", ""
	watchDebounce = 500 * time.Millisecond
	watchOnce, watchJSON = false, false
}

// runCLI executes args against RootCmd and returns captured stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var err error
	out := captureStdout(t, func() {
		RootCmd.SetArgs(args)
		err = RootCmd.Execute()
	})
	return out, err
}

const testBookings = `[
  {"booking_date":"2024-06-28","hours":20,"activity":"Dev","project":"P1"},
  {"booking_date":"2024-06-10","hours":20,"activity":"Dev","project":"P1"},
  {"booking_date":"2024-05-25","hours":10,"activity":"QA","project":"P1"},
  {"booking_date":"2024-05-12","hours":10,"activity":"Dev","project":"P1"}
]`

// setupProject initializes a workspace with a bookings export and returns its root.
func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USER", "tester")
	if err := os.WriteFile(filepath.Join(root, "bookings.json"), []byte(testBookings), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "init", "--project-dir", root, "--bookings", "bookings.json"); err != nil {
		t.Fatalf("init: %v", err)
	}
	return root
}
