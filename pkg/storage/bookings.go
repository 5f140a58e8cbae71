package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
)

// ColumnMap names the fields of an exported booking row. Hours is
// selectable so a source can forecast on billable or total hours.
type ColumnMap struct {
	Date     string `yaml:"date" mapstructure:"date"`
	Hours    string `yaml:"hours" mapstructure:"hours"`
	Activity string `yaml:"activity" mapstructure:"activity"`
	Project  string `yaml:"project" mapstructure:"project"`
}

// DefaultColumns matches the time-tracking export layout.
func DefaultColumns() ColumnMap {
	return ColumnMap{Date: "booking_date", Hours: "hours", Activity: "activity", Project: "project"}
}

func (c ColumnMap) withDefaults() ColumnMap {
	d := DefaultColumns()
	if c.Date == "" {
		c.Date = d.Date
	}
	if c.Hours == "" {
		c.Hours = d.Hours
	}
	if c.Activity == "" {
		c.Activity = d.Activity
	}
	if c.Project == "" {
		c.Project = d.Project
	}
	return c
}

// OpenBookingSource returns a file-backed source. An empty format is
// inferred from the file extension.
func OpenBookingSource(path, format string, columns ColumnMap) (booking.Source, error) {
	if path == "" {
		return nil, booking.ErrNoSource
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case "json":
		return NewJSONBookingSource(path, columns), nil
	case "csv":
		return NewCSVBookingSource(path, columns), nil
	default:
		return nil, fmt.Errorf("unsupported bookings format %q", format)
	}
}

// JSONBookingSource reads an array of booking objects. Each read re-opens the
// file so edits are picked up.
type JSONBookingSource struct {
	path        string
	columns     ColumnMap
	retryConfig retry.Config
}

func NewJSONBookingSource(path string, columns ColumnMap) *JSONBookingSource {
	return &JSONBookingSource{path: path, columns: columns.withDefaults(), retryConfig: defaultRetry()}
}

func (s *JSONBookingSource) Path() string { return s.path }

func (s *JSONBookingSource) schema() string {
	return fmt.Sprintf(`{
  "type": "array",
  "items": {
    "type": "object",
    "required": [%q, %q],
    "properties": {
      %q: {"type": "string"},
      %q: {"type": ["number", "string"]}
    }
  }
}`, s.columns.Date, s.columns.Hours, s.columns.Date, s.columns.Hours)
}

func (s *JSONBookingSource) Bookings(ctx context.Context, q booking.Query) (booking.Series, error) {
	data, err := readWithRetry(ctx, s.retryConfig, s.path)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(s.schema()),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bookings %s: %w", s.path, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("invalid bookings %s: %s", s.path, strings.Join(msgs, "; "))
	}

	var (
		out      []booking.Booking
		parseErr error
	)
	gjson.ParseBytes(data).ForEach(func(idx, row gjson.Result) bool {
		date, err := booking.ParseDate(row.Get(s.columns.Date).String())
		if err != nil {
			parseErr = fmt.Errorf("row %d: invalid %s: %w", idx.Int(), s.columns.Date, err)
			return false
		}
		hours, err := parseHours(row.Get(s.columns.Hours))
		if err != nil {
			parseErr = fmt.Errorf("row %d: invalid %s: %w", idx.Int(), s.columns.Hours, err)
			return false
		}
		b := booking.Booking{
			Date:     date,
			Hours:    hours,
			Activity: row.Get(s.columns.Activity).String(),
			Project:  row.Get(s.columns.Project).String(),
		}
		if q.Matches(b) {
			out = append(out, b)
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return booking.Normalize(out), nil
}

// parseHours accepts a JSON number or a numeric string.
func parseHours(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Float(), nil
	case gjson.String:
		return strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
	}
	return 0, fmt.Errorf("expected a number, got %q", v.Raw)
}

// CSVBookingSource reads a CSV export with a header row.
type CSVBookingSource struct {
	path        string
	columns     ColumnMap
	retryConfig retry.Config
}

func NewCSVBookingSource(path string, columns ColumnMap) *CSVBookingSource {
	return &CSVBookingSource{path: path, columns: columns.withDefaults(), retryConfig: defaultRetry()}
}

func (s *CSVBookingSource) Path() string { return s.path }

func (s *CSVBookingSource) Bookings(ctx context.Context, q booking.Query) (booking.Series, error) {
	data, err := readWithRetry(ctx, s.retryConfig, s.path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(string(data)))
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return booking.Series{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bookings header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	dateCol, okDate := index[s.columns.Date]
	hoursCol, okHours := index[s.columns.Hours]
	if !okDate || !okHours {
		return nil, fmt.Errorf("bookings %s must have %q and %q columns", s.path, s.columns.Date, s.columns.Hours)
	}
	field := func(rec []string, name string) string {
		if i, ok := index[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var out []booking.Booking
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		date, err := booking.ParseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", line, s.columns.Date, err)
		}
		hours, err := strconv.ParseFloat(strings.TrimSpace(rec[hoursCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", line, s.columns.Hours, err)
		}
		b := booking.Booking{
			Date:     date,
			Hours:    hours,
			Activity: field(rec, s.columns.Activity),
			Project:  field(rec, s.columns.Project),
		}
		if q.Matches(b) {
			out = append(out, b)
		}
	}
	return booking.Normalize(out), nil
}

func readWithRetry(ctx context.Context, cfg retry.Config, path string) ([]byte, error) {
	retryer := retry.New[[]byte](cfg)
	return retryer.Do(ctx, func(ctx context.Context) ([]byte, error) {
		// #nosec G304 -- Path comes from workspace configuration
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read bookings file: %w", err)
		}
		return data, nil
	})
}
