// Package booking models employee hour bookings as delivered by the time-tracking source.
package booking

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar date format used across bookings and budgets.
const DateLayout = "2006-01-02"

// Booking is a single hour booking. Bookings have no identity beyond their
// position in a series; several bookings on the same day are valid.
type Booking struct {
	Date     time.Time `json:"date" yaml:"date"`
	Hours    float64   `json:"hours" yaml:"hours"`
	Activity string    `json:"activity,omitempty" yaml:"activity,omitempty"`
	Project  string    `json:"project,omitempty" yaml:"project,omitempty"`
}

// Series is an ordered sequence of bookings for one project or activity.
type Series []Booking

// Normalize returns a copy sorted by date. Negative hours are kept as
// cancellations and reduce the booked total.
func Normalize(bookings []Booking) Series {
	out := make(Series, len(bookings))
	copy(out, bookings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// TotalHours sums all hours in the series.
func (s Series) TotalHours() float64 {
	total := 0.0
	for _, b := range s {
		total += b.Hours
	}
	return total
}

// Filter returns the bookings matching the query.
func (s Series) Filter(q Query) Series {
	out := make(Series, 0, len(s))
	for _, b := range s {
		if q.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}

// DailyPoint is the cumulative booked hours at the end of a day.
type DailyPoint struct {
	Date       time.Time `json:"date"`
	Hours      float64   `json:"hours"`
	Cumulative float64   `json:"cumulative"`
}

// DailyCumulative groups the series by calendar day and accumulates hours.
func (s Series) DailyCumulative() []DailyPoint {
	if len(s) == 0 {
		return nil
	}
	byDay := make(map[string]float64)
	days := make([]time.Time, 0)
	for _, b := range s {
		day := Day(b.Date)
		key := day.Format(DateLayout)
		if _, ok := byDay[key]; !ok {
			days = append(days, day)
		}
		byDay[key] += b.Hours
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	points := make([]DailyPoint, len(days))
	running := 0.0
	for i, d := range days {
		h := byDay[d.Format(DateLayout)]
		running += h
		points[i] = DailyPoint{Date: d, Hours: h, Cumulative: running}
	}
	return points
}

// ActualHours sums hours per project and activity.
func (s Series) ActualHours() map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for _, b := range s {
		if out[b.Project] == nil {
			out[b.Project] = make(map[string]float64)
		}
		out[b.Project][b.Activity] += b.Hours
	}
	return out
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts a plain calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
