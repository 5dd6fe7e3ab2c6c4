package report

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/taplab/salesdash/internal/enum"
)

const (
	DateLayout   = "2006-01-02"
	DefaultLimit = 3
	MaxLimit     = 50
)

// ErrInvalidDate is returned when a date parameter cannot be understood.
var ErrInvalidDate = errors.New("invalid date")

// Query is a normalised request window.
type Query struct {
	From         string
	To           string
	Date         string // single-date mode when set; From and To equal Date
	Metric       string
	Limit        int
	IncludeDaily bool
}

// SingleDate reports whether the query asks for one day's detail.
func (q Query) SingleDate() bool { return q.Date != "" }

// ComparisonDate is the same weekday one week before Date.
func (q Query) ComparisonDate() string {
	if q.Date == "" {
		return ""
	}
	t, err := time.Parse(DateLayout, q.Date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -7).Format(DateLayout)
}

var dateOnlyLayouts = []string{
	DateLayout,
	"02.01.2006",
	"2.1.2006",
	"2006/01/02",
	"01/02/2006",
	"20060102",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	time.RFC1123Z,
	time.RFC1123,
}

// NormalizeDate converts s to YYYY-MM-DD. Empty input returns "" and no error.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", ErrInvalidDate
}

// OrderRange swaps from and to when they are reversed.
func OrderRange(from, to string) (string, string) {
	if from > to {
		return to, from
	}
	return from, to
}

// ClampLimit parses a top-N size. Missing means DefaultLimit; anything else
// is truncated and bounded to [1, MaxLimit].
func ClampLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit
	}
	n := 0
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		n = int(max(min(f, MaxLimit), 0))
	}
	return max(1, min(MaxLimit, n))
}

// ParseMetric returns MetricQty for "qty" and MetricRevenue otherwise.
func ParseMetric(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), enum.MetricQty) {
		return enum.MetricQty
	}
	return enum.MetricRevenue
}
