package budget

import (
	"context"
	"math"
	"sort"
	"time"
)

// Ledger is the append-only budget store. Implementations must persist an
// entry atomically or not at all, and must never update or delete entries.
type Ledger interface {
	// SaveEntry validates and appends e, returning it with ID and CreatedAt set.
	SaveEntry(ctx context.Context, e Entry) (Entry, error)
	// BudgetAt returns the folded budget as of date, or 0 without entries.
	BudgetAt(ctx context.Context, projectID, activity string, date time.Time) (float64, error)
	// AllBudgetsAt folds every (project, activity) of the given projects.
	// Pairs with no entry on or before date are omitted.
	AllBudgetsAt(ctx context.Context, projects []string, date time.Time) (Budgets, error)
	// History lists entries newest first. An empty activity lists the whole project.
	History(ctx context.Context, projectID, activity string) ([]Entry, error)
	// Activities returns the sorted distinct activities of a project.
	Activities(ctx context.Context, projectID string) ([]string, error)
}

// Apply folds one entry into a running total.
func Apply(total float64, e Entry) float64 {
	switch e.ChangeType {
	case ChangeReduction:
		return math.Max(0, total-e.Hours)
	case ChangeCorrection:
		return e.Hours
	default:
		return total + e.Hours
	}
}

// SortChronological orders entries by valid_from, created_at, then id ascending.
func SortChronological(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return chronoLess(entries[i], entries[j])
	})
}

// SortHistory orders entries newest first: valid_from, created_at, then id descending.
func SortHistory(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return chronoLess(entries[j], entries[i])
	})
}

func chronoLess(a, b Entry) bool {
	if !a.ValidFrom.Equal(b.ValidFrom) {
		return a.ValidFrom.Before(b.ValidFrom)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// TotalAt folds the entries with valid_from on or before date. It reports
// false when no entry qualifies. The input slice is not modified.
func TotalAt(entries []Entry, date time.Time) (float64, bool) {
	cutoff := ValidFromDate(date)
	qualifying := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.ValidFrom.After(cutoff) {
			qualifying = append(qualifying, e)
		}
	}
	if len(qualifying) == 0 {
		return 0, false
	}
	SortChronological(qualifying)
	total := 0.0
	for _, e := range qualifying {
		total = Apply(total, e)
	}
	return total, true
}

// FoldAll folds entries per (project, activity) as of date into a sparse map.
func FoldAll(entries []Entry, date time.Time) Budgets {
	grouped := make(map[string]map[string][]Entry)
	for _, e := range entries {
		if grouped[e.ProjectID] == nil {
			grouped[e.ProjectID] = make(map[string][]Entry)
		}
		grouped[e.ProjectID][e.Activity] = append(grouped[e.ProjectID][e.Activity], e)
	}
	out := make(Budgets)
	for project, byActivity := range grouped {
		for activity, list := range byActivity {
			if total, ok := TotalAt(list, date); ok {
				out.Set(project, activity, total)
			}
		}
	}
	return out
}

// Budgets maps project to activity to budget hours.
type Budgets map[string]map[string]float64

// Get returns the budget for a pair, or 0 when absent.
func (b Budgets) Get(project, activity string) float64 {
	return b[project][activity]
}

// Has reports whether the pair has a budget entry.
func (b Budgets) Has(project, activity string) bool {
	_, ok := b[project][activity]
	return ok
}

// Set records a budget for a pair.
func (b Budgets) Set(project, activity string, hours float64) {
	if b[project] == nil {
		b[project] = make(map[string]float64)
	}
	b[project][activity] = hours
}

// ProjectTotal sums all activity budgets of a project.
func (b Budgets) ProjectTotal(project string) float64 {
	total := 0.0
	for _, h := range b[project] {
		total += h
	}
	return total
}

// Projects returns the sorted project IDs.
func (b Budgets) Projects() []string {
	out := make([]string, 0, len(b))
	for p := range b {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Activities returns the sorted activities budgeted for a project.
func (b Budgets) Activities(project string) []string {
	out := make([]string, 0, len(b[project]))
	for a := range b[project] {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Share is the activity's percentage of its project's total budget.
func (b Budgets) Share(project, activity string) float64 {
	total := b.ProjectTotal(project)
	if total <= 0 {
		return 0
	}
	return b.Get(project, activity) * 100 / total
}

// Count returns the number of (project, activity) pairs.
func (b Budgets) Count() int {
	n := 0
	for _, acts := range b {
		n += len(acts)
	}
	return n
}
