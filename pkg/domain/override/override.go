// Package override models the manual velocity that replaces the computed
// weighted sprint average for a project or activity.
package override

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNegativeHours = errors.New("override hours per sprint must be >= 0")
	ErrEmptyProject  = errors.New("project ID must not be empty")
	ErrNotFound      = errors.New("no forecast override stored")
	ErrInvalidKey    = errors.New("project ID and activity must not contain \"::\"")
)

// Key identifies one override. An empty Activity is the project-wide override.
type Key struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Activity  string `json:"activity,omitempty" yaml:"activity,omitempty"`
}

// NewKey trims and validates a key.
func NewKey(projectID, activity string) (Key, error) {
	k := Key{ProjectID: strings.TrimSpace(projectID), Activity: strings.TrimSpace(activity)}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Validate rejects keys whose String form would be ambiguous.
func (k Key) Validate() error {
	if k.ProjectID == "" {
		return ErrEmptyProject
	}
	if strings.Contains(k.ProjectID, keySeparator) || strings.Contains(k.Activity, keySeparator) {
		return fmt.Errorf("%w: %q / %q", ErrInvalidKey, k.ProjectID, k.Activity)
	}
	return nil
}

const keySeparator = "::"

// String is the stable storage key, "project" or "project::activity".
func (k Key) String() string {
	if k.Activity == "" {
		return k.ProjectID
	}
	return k.ProjectID + keySeparator + k.Activity
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) Key {
	project, activity, _ := strings.Cut(s, keySeparator)
	return Key{ProjectID: project, Activity: activity}
}

// Override is the stored manual velocity. Saving replaces any prior record
// for the same key; concurrent writers get last-write-wins.
type Override struct {
	HoursPerSprint float64   `json:"hours_per_sprint" yaml:"hours_per_sprint"`
	Reason         string    `json:"reason" yaml:"reason"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
	UpdatedBy      string    `json:"updated_by" yaml:"updated_by"`
	Active         bool      `json:"active" yaml:"active"`
}

// Validate checks the write-boundary constraints.
func (o Override) Validate() error {
	if o.HoursPerSprint < 0 {
		return fmt.Errorf("%w: got %v", ErrNegativeHours, o.HoursPerSprint)
	}
	return nil
}

// ManualHours returns the hours to use as base velocity, or nil when the
// automatic weighted average applies.
func ManualHours(o *Override) *float64 {
	if o == nil || !o.Active {
		return nil
	}
	h := o.HoursPerSprint
	return &h
}

// Store persists overrides by key.
type Store interface {
	// Load returns nil, nil when no record exists for key.
	Load(ctx context.Context, key Key) (*Override, error)
	// Save overwrites the record for key.
	Save(ctx context.Context, key Key, o Override) error
}
