package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
)

// SQLOverrideStore keeps one row per override key and upserts on save.
type SQLOverrideStore struct {
	db *DB
}

func NewSQLOverrideStore(db *DB) *SQLOverrideStore {
	return &SQLOverrideStore{db: db}
}

func (s *SQLOverrideStore) Load(ctx context.Context, key override.Key) (*override.Override, error) {
	var (
		o         override.Override
		updatedAt string
		active    int
	)
	err := s.db.sql.QueryRowContext(ctx,
		s.db.rebind("SELECT hours_per_sprint, reason, updated_at, updated_by, active FROM forecast_overrides WHERE override_key = ?"),
		key.String(),
	).Scan(&o.HoursPerSprint, &o.Reason, &updatedAt, &o.UpdatedBy, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load override %s: %w", key, err)
	}
	if o.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("override %s has invalid updated_at %q: %w", key, updatedAt, err)
	}
	o.Active = active == 1
	return &o, nil
}

func (s *SQLOverrideStore) Save(ctx context.Context, key override.Key, o override.Override) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}
	query := s.db.rebind(`INSERT INTO forecast_overrides(override_key, project_id, activity, hours_per_sprint, reason, updated_at, updated_by, active)
VALUES(?,?,?,?,?,?,?,?)
ON CONFLICT(override_key) DO UPDATE SET
  hours_per_sprint = excluded.hours_per_sprint,
  reason = excluded.reason,
  updated_at = excluded.updated_at,
  updated_by = excluded.updated_by,
  active = excluded.active`)
	_, err := s.db.sql.ExecContext(ctx, query,
		key.String(), key.ProjectID, key.Activity, o.HoursPerSprint, o.Reason,
		formatTimestamp(o.UpdatedAt), o.UpdatedBy, boolToInt(o.Active))
	if err != nil {
		return fmt.Errorf("failed to save override %s: %w", key, err)
	}
	return nil
}
