package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
	"github.com/felixgeelhaar/budgetcast/pkg/domain/budget"
	"github.com/felixgeelhaar/budgetcast/pkg/storage"
)

var errUnavailable = errors.New("source unavailable")

var fixedNow = time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestLogger() (logrus.FieldLogger, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

// failingSource simulates an unreachable booking collaborator.
type failingSource struct{}

func (failingSource) Bookings(context.Context, booking.Query) (booking.Series, error) {
	return nil, errUnavailable
}

// failingLedger rejects every call after validation.
type failingLedger struct {
	*storage.MemoryLedger
}

func (failingLedger) SaveEntry(context.Context, budget.Entry) (budget.Entry, error) {
	return budget.Entry{}, errUnavailable
}

func (failingLedger) AllBudgetsAt(context.Context, []string, time.Time) (budget.Budgets, error) {
	return nil, errUnavailable
}

func daysBefore(n int) time.Time {
	return fixedNow.AddDate(0, 0, -n)
}

func seedLedger(ctx context.Context, l budget.Ledger, entries ...budget.Entry) {
	for _, e := range entries {
		if _, err := l.SaveEntry(ctx, e); err != nil {
			panic(err)
		}
	}
}

func mustEntry(project, activity string, hours float64, ct budget.ChangeType, validFrom time.Time) budget.Entry {
	e, err := budget.NewEntry(project, activity, hours, ct, validFrom, "seed", "", "tester")
	if err != nil {
		panic(err)
	}
	return e
}
