package booking

import (
	"context"
	"errors"
	"time"
)

// ErrNoSource is returned when no booking source has been configured.
var ErrNoSource = errors.New("no booking source configured")

// Query selects bookings from a Source. Empty fields do not filter.
type Query struct {
	Projects []string
	Activity string
	From     *time.Time
	To       *time.Time
}

// Matches reports whether b satisfies the query.
func (q Query) Matches(b Booking) bool {
	if len(q.Projects) > 0 {
		found := false
		for _, p := range q.Projects {
			if p == b.Project {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Activity != "" && q.Activity != b.Activity {
		return false
	}
	day := Day(b.Date)
	if q.From != nil && day.Before(Day(*q.From)) {
		return false
	}
	if q.To != nil && day.After(Day(*q.To)) {
		return false
	}
	return true
}

// Source is the data-access collaborator that owns the time-tracking data.
// Implementations own any I/O latency, retries and timeouts.
type Source interface {
	Bookings(ctx context.Context, q Query) (Series, error)
}

// StaticSource serves an in-memory snapshot of bookings.
type StaticSource struct {
	All Series
}

func NewStaticSource(bookings []Booking) *StaticSource {
	return &StaticSource{All: Normalize(bookings)}
}

func (s *StaticSource) Bookings(ctx context.Context, q Query) (Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.All.Filter(q), nil
}
