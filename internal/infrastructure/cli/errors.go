package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
)

var errNotInitialized = errors.New("budgetcast workspace not initialized")

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	switch {
	case errors.Is(err, errNotInitialized):
		return NewCLIError("no budgetcast workspace found", "Run 'budgetcast init' or pass --project-dir", err)
	case errors.Is(err, booking.ErrNoSource):
		return NewCLIError("no bookings configured", "Set bookings.path in .budgetcast/config.yaml or BUDGETCAST_BOOKINGS_PATH", err)
	case errors.Is(err, budget.ErrInvalidChangeType):
		return NewCLIError("invalid change type", "Use one of: initial, extension, correction, reduction", err)
	case errors.Is(err, budget.ErrNegativeHours), errors.Is(err, override.ErrNegativeHours):
		return NewCLIError("hours must not be negative", "Record a 'reduction' to lower a budget", err)
	case errors.Is(err, budget.ErrEmptyReason):
		return NewCLIError("a reason is required", "Pass --reason to explain the budget change", err)
	case errors.Is(err, budget.ErrEmptyProject), errors.Is(err, override.ErrEmptyProject):
		return NewCLIError("a project is required", "Pass --project", err)
	case errors.Is(err, budget.ErrEmptyActivity):
		return NewCLIError("an activity is required", "Pass --activity", err)
	case errors.Is(err, budget.ErrEmptyAuthor):
		return NewCLIError("no author for the budget change", "Pass --by or set user in the config", err)
	case errors.Is(err, budget.ErrInvalidValidFrom):
		return NewCLIError("a valid-from date is required", "Pass --valid-from YYYY-MM-DD", err)
	case errors.Is(err, override.ErrInvalidKey):
		return NewCLIError("invalid override key", "Project and activity names must not contain '::'", err)
	case errors.Is(err, override.ErrNotFound):
		return NewCLIError("no override stored", "Create one with 'budgetcast override set'", err)
	}

	return err
}
