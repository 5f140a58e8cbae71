package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
)

const entryColumns = "id, project_id, activity, hours, change_type, valid_from, reason, reference, created_by, created_at"

// SQLLedger stores budget entries in a relational table. Entries are only
// ever inserted; as-of totals are folded in Go so both dialects share the
// change-type semantics.
type SQLLedger struct {
	db  *DB
	now func() time.Time
}

func NewSQLLedger(db *DB) *SQLLedger {
	return &SQLLedger{db: db, now: time.Now}
}

// LedgerStats describes the ledger contents.
type LedgerStats struct {
	Dialect  Dialect `json:"dialect"`
	Entries  int     `json:"entries"`
	Projects int     `json:"projects"`
}

func (l *SQLLedger) SaveEntry(ctx context.Context, e budget.Entry) (budget.Entry, error) {
	if err := e.Validate(); err != nil {
		return budget.Entry{}, err
	}
	e.CreatedAt = l.now().UTC()

	var ref any
	if e.Reference != nil {
		ref = *e.Reference
	}
	query := l.db.rebind(`INSERT INTO budget_entries(project_id, activity, hours, change_type, valid_from, reason, reference, created_by, created_at)
VALUES(?,?,?,?,?,?,?,?,?) RETURNING id`)
	err := l.db.sql.QueryRowContext(ctx, query,
		e.ProjectID, e.Activity, e.Hours, string(e.ChangeType), e.ValidFrom.Format(dateLayout),
		e.Reason, ref, e.CreatedBy, formatTimestamp(e.CreatedAt),
	).Scan(&e.ID)
	if err != nil {
		return budget.Entry{}, fmt.Errorf("failed to insert budget entry: %w", err)
	}
	return e, nil
}

func (l *SQLLedger) BudgetAt(ctx context.Context, projectID, activity string, date time.Time) (float64, error) {
	entries, err := l.query(ctx,
		"WHERE project_id = ? AND activity = ? AND valid_from <= ?",
		projectID, activity, budget.ValidFromDate(date).Format(dateLayout))
	if err != nil {
		return 0, err
	}
	total, _ := budget.TotalAt(entries, date)
	return total, nil
}

func (l *SQLLedger) AllBudgetsAt(ctx context.Context, projects []string, date time.Time) (budget.Budgets, error) {
	if len(projects) == 0 {
		return budget.Budgets{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(projects)), ",")
	args := make([]any, 0, len(projects)+1)
	for _, p := range projects {
		args = append(args, p)
	}
	args = append(args, budget.ValidFromDate(date).Format(dateLayout))

	entries, err := l.query(ctx, "WHERE project_id IN ("+placeholders+") AND valid_from <= ?", args...)
	if err != nil {
		return nil, err
	}
	return budget.FoldAll(entries, date), nil
}

func (l *SQLLedger) History(ctx context.Context, projectID, activity string) ([]budget.Entry, error) {
	var (
		entries []budget.Entry
		err     error
	)
	if activity == "" {
		entries, err = l.query(ctx, "WHERE project_id = ?", projectID)
	} else {
		entries, err = l.query(ctx, "WHERE project_id = ? AND activity = ?", projectID, activity)
	}
	if err != nil {
		return nil, err
	}
	budget.SortHistory(entries)
	return entries, nil
}

func (l *SQLLedger) Activities(ctx context.Context, projectID string) ([]string, error) {
	rows, err := l.db.sql.QueryContext(ctx,
		l.db.rebind("SELECT DISTINCT activity FROM budget_entries WHERE project_id = ? ORDER BY activity"), projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Stats counts entries and distinct projects.
func (l *SQLLedger) Stats(ctx context.Context) (LedgerStats, error) {
	stats := LedgerStats{Dialect: l.db.dialect}
	err := l.db.sql.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT project_id) FROM budget_entries",
	).Scan(&stats.Entries, &stats.Projects)
	if err != nil {
		return LedgerStats{}, fmt.Errorf("failed to read ledger stats: %w", err)
	}
	return stats, nil
}

// Ping checks the underlying database.
func (l *SQLLedger) Ping(ctx context.Context) error {
	return l.db.Ping(ctx)
}

func (l *SQLLedger) query(ctx context.Context, where string, args ...any) ([]budget.Entry, error) {
	query := l.db.rebind("SELECT " + entryColumns + " FROM budget_entries " + where)
	rows, err := l.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget entries: %w", err)
	}
	defer rows.Close()

	var entries []budget.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (budget.Entry, error) {
	var (
		e                    budget.Entry
		changeType           string
		validFrom, createdAt string
		ref                  sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.ProjectID, &e.Activity, &e.Hours, &changeType, &validFrom, &e.Reason, &ref, &e.CreatedBy, &createdAt); err != nil {
		return budget.Entry{}, fmt.Errorf("failed to scan budget entry: %w", err)
	}
	e.ChangeType = budget.ChangeType(changeType)
	vf, err := time.Parse(dateLayout, validFrom)
	if err != nil {
		return budget.Entry{}, fmt.Errorf("entry %d has invalid valid_from %q: %w", e.ID, validFrom, err)
	}
	e.ValidFrom = vf
	if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return budget.Entry{}, fmt.Errorf("entry %d has invalid created_at %q: %w", e.ID, createdAt, err)
	}
	if ref.Valid {
		r := ref.String
		e.Reference = &r
	}
	return e, nil
}
