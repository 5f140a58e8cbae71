package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/booking"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDateFlag returns nil for an empty value.
func parseDateFlag(name, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := booking.ParseDate(value)
	if err != nil {
		return nil, NewCLIError(fmt.Sprintf("invalid --%s %q", name, value), "Use YYYY-MM-DD", err)
	}
	return &t, nil
}

func dateOrToday(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now()
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func formatHours(h float64) string {
	if math.IsInf(h, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f h", h)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "never (no velocity)"
	}
	return t.Format(booking.DateLayout)
}
