package booking

import (
	"context"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalize_SortsAndKeepsCancellations(t *testing.T) {
	in := []Booking{
		{Date: day("2024-03-02"), Hours: 4},
		{Date: day("2024-03-01"), Hours: 2},
		{Date: day("2024-03-03"), Hours: -1},
	}
	got := Normalize(in)
	if len(got) != 3 {
		t.Fatalf("expected 3 bookings, got %d", len(got))
	}
	if !got[0].Date.Equal(day("2024-03-01")) || got[2].Hours != -1 {
		t.Errorf("unexpected order: %+v", got)
	}
	if got.TotalHours() != 5 {
		t.Errorf("TotalHours = %v, want 5", got.TotalHours())
	}
	if !in[0].Date.Equal(day("2024-03-02")) {
		t.Error("Normalize must not reorder its input")
	}
	points := got.DailyCumulative()
	if last := points[len(points)-1]; last.Hours != -1 || last.Cumulative != 5 {
		t.Errorf("last daily point = %+v", last)
	}
}

func TestSeries_DailyCumulative(t *testing.T) {
	s := Series{
		{Date: day("2024-03-01"), Hours: 2},
		{Date: day("2024-03-01").Add(5 * time.Hour), Hours: 3},
		{Date: day("2024-03-04"), Hours: 1.5},
	}
	points := s.DailyCumulative()
	if len(points) != 2 {
		t.Fatalf("expected 2 daily points, got %d", len(points))
	}
	if points[0].Hours != 5 || points[0].Cumulative != 5 {
		t.Errorf("first day = %+v", points[0])
	}
	if points[1].Cumulative != 6.5 {
		t.Errorf("second cumulative = %v, want 6.5", points[1].Cumulative)
	}
	if (Series{}).DailyCumulative() != nil {
		t.Error("empty series should have no points")
	}
}

func TestQuery_Matches(t *testing.T) {
	from := day("2024-02-01")
	to := day("2024-02-29")
	b := Booking{Date: day("2024-02-10"), Hours: 1, Project: "P1", Activity: "Dev"}

	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"empty query", Query{}, true},
		{"project match", Query{Projects: []string{"P0", "P1"}}, true},
		{"project mismatch", Query{Projects: []string{"P2"}}, false},
		{"activity mismatch", Query{Activity: "Test"}, false},
		{"within range", Query{From: &from, To: &to}, true},
		{"before range", Query{From: &to}, false},
		{"after range", Query{To: &from}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Matches(b); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeries_ActualHours(t *testing.T) {
	s := Series{
		{Project: "P1", Activity: "Dev", Hours: 3},
		{Project: "P1", Activity: "Dev", Hours: 2},
		{Project: "P1", Activity: "Test", Hours: 1},
		{Project: "P2", Activity: "Dev", Hours: 4},
	}
	got := s.ActualHours()
	if got["P1"]["Dev"] != 5 || got["P1"]["Test"] != 1 || got["P2"]["Dev"] != 4 {
		t.Errorf("unexpected totals: %v", got)
	}
}

func TestStaticSource_Bookings(t *testing.T) {
	src := NewStaticSource([]Booking{
		{Date: day("2024-01-02"), Hours: 1, Project: "P1"},
		{Date: day("2024-01-01"), Hours: 2, Project: "P2"},
	})
	got, err := src.Bookings(context.Background(), Query{Projects: []string{"P1"}})
	if err != nil {
		t.Fatalf("Bookings: %v", err)
	}
	if len(got) != 1 || got[0].Project != "P1" {
		t.Errorf("unexpected bookings: %+v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Bookings(ctx, Query{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-05-06", "2024-05-06T10:00:00Z", "2024-05-06 10:00:00"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", in, err)
			continue
		}
		if !Day(got).Equal(day("2024-05-06")) {
			t.Errorf("ParseDate(%q) = %s", in, got)
		}
	}
	if _, err := ParseDate("06.05.2024"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}
