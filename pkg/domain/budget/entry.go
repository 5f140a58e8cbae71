// Package budget holds the append-only budget ledger model: entries, the
// as-of-date fold over them, and fulfillment status against booked hours.
package budget

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNegativeHours     = errors.New("budget hours must be >= 0")
	ErrEmptyReason       = errors.New("budget change reason must not be empty")
	ErrInvalidChangeType = errors.New("invalid budget change type")
	ErrEmptyProject      = errors.New("project ID must not be empty")
	ErrEmptyActivity     = errors.New("activity must not be empty")
	ErrEmptyAuthor       = errors.New("created_by must not be empty")
	ErrInvalidValidFrom  = errors.New("valid_from must be set")
)

// ChangeType classifies a ledger entry.
type ChangeType string

const (
	ChangeInitial    ChangeType = "initial"
	ChangeExtension  ChangeType = "extension"
	ChangeCorrection ChangeType = "correction"
	ChangeReduction  ChangeType = "reduction"
)

// ChangeTypes lists the accepted change types in display order.
var ChangeTypes = []ChangeType{ChangeInitial, ChangeExtension, ChangeCorrection, ChangeReduction}

// Valid reports whether c is one of the fixed change types.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeInitial, ChangeExtension, ChangeCorrection, ChangeReduction:
		return true
	}
	return false
}

// Label is the display name of the change type.
func (c ChangeType) Label() string {
	switch c {
	case ChangeInitial:
		return "Initial budget"
	case ChangeExtension:
		return "Extension"
	case ChangeCorrection:
		return "Correction"
	case ChangeReduction:
		return "Reduction"
	}
	return string(c)
}

// ParseChangeType parses a change type name case-insensitively.
func ParseChangeType(s string) (ChangeType, error) {
	c := ChangeType(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidChangeType, s)
	}
	return c, nil
}

// Entry is one immutable row of the budget ledger. ID and CreatedAt are
// assigned by the ledger on save.
type Entry struct {
	ID         int64      `json:"id" yaml:"id"`
	ProjectID  string     `json:"project_id" yaml:"project_id"`
	Activity   string     `json:"activity" yaml:"activity"`
	Hours      float64    `json:"hours" yaml:"hours"`
	ChangeType ChangeType `json:"change_type" yaml:"change_type"`
	ValidFrom  time.Time  `json:"valid_from" yaml:"valid_from"`
	Reason     string     `json:"reason" yaml:"reason"`
	Reference  *string    `json:"reference,omitempty" yaml:"reference,omitempty"`
	CreatedBy  string     `json:"created_by" yaml:"created_by"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
}

// NewEntry creates a validated entry ready to be appended to a ledger.
// An empty reference is stored as absent.
func NewEntry(projectID, activity string, hours float64, changeType ChangeType, validFrom time.Time, reason, reference, createdBy string) (Entry, error) {
	e := Entry{
		ProjectID:  strings.TrimSpace(projectID),
		Activity:   strings.TrimSpace(activity),
		Hours:      hours,
		ChangeType: changeType,
		ValidFrom:  ValidFromDate(validFrom),
		Reason:     strings.TrimSpace(reason),
		CreatedBy:  strings.TrimSpace(createdBy),
	}
	if ref := strings.TrimSpace(reference); ref != "" {
		e.Reference = &ref
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Validate checks the write-boundary constraints of an entry.
func (e Entry) Validate() error {
	if e.ProjectID == "" {
		return ErrEmptyProject
	}
	if e.Activity == "" {
		return ErrEmptyActivity
	}
	if e.Hours < 0 {
		return fmt.Errorf("%w: got %v", ErrNegativeHours, e.Hours)
	}
	if !e.ChangeType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidChangeType, e.ChangeType)
	}
	if e.ValidFrom.IsZero() {
		return ErrInvalidValidFrom
	}
	if strings.TrimSpace(e.Reason) == "" {
		return ErrEmptyReason
	}
	if strings.TrimSpace(e.CreatedBy) == "" {
		return ErrEmptyAuthor
	}
	return nil
}

// ReferenceOrEmpty returns the external reference or "".
func (e Entry) ReferenceOrEmpty() string {
	if e.Reference == nil {
		return ""
	}
	return *e.Reference
}

// ValidFromDate truncates t to its calendar date in UTC.
func ValidFromDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
