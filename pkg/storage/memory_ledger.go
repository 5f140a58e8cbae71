package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
)

// MemoryLedger keeps budget entries in process memory.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []budget.Entry
	nextID  int64
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{nextID: 1, now: time.Now}
}

func (l *MemoryLedger) SaveEntry(ctx context.Context, e budget.Entry) (budget.Entry, error) {
	if err := ctx.Err(); err != nil {
		return budget.Entry{}, err
	}
	if err := e.Validate(); err != nil {
		return budget.Entry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = l.nextID
	e.CreatedAt = l.now().UTC()
	l.nextID++
	l.entries = append(l.entries, e)
	return e, nil
}

func (l *MemoryLedger) BudgetAt(ctx context.Context, projectID, activity string, date time.Time) (float64, error) {
	entries := l.filter(func(e budget.Entry) bool {
		return e.ProjectID == projectID && e.Activity == activity
	})
	total, _ := budget.TotalAt(entries, date)
	return total, ctx.Err()
}

func (l *MemoryLedger) AllBudgetsAt(ctx context.Context, projects []string, date time.Time) (budget.Budgets, error) {
	wanted := make(map[string]bool, len(projects))
	for _, p := range projects {
		wanted[p] = true
	}
	entries := l.filter(func(e budget.Entry) bool { return wanted[e.ProjectID] })
	return budget.FoldAll(entries, date), ctx.Err()
}

func (l *MemoryLedger) History(ctx context.Context, projectID, activity string) ([]budget.Entry, error) {
	entries := l.filter(func(e budget.Entry) bool {
		return e.ProjectID == projectID && (activity == "" || e.Activity == activity)
	})
	budget.SortHistory(entries)
	return entries, ctx.Err()
}

func (l *MemoryLedger) Activities(ctx context.Context, projectID string) ([]string, error) {
	seen := make(map[string]bool)
	activities := []string{}
	for _, e := range l.filter(func(e budget.Entry) bool { return e.ProjectID == projectID }) {
		if !seen[e.Activity] {
			seen[e.Activity] = true
			activities = append(activities, e.Activity)
		}
	}
	sort.Strings(activities)
	return activities, ctx.Err()
}

func (l *MemoryLedger) filter(keep func(budget.Entry) bool) []budget.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []budget.Entry
	for _, e := range l.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
