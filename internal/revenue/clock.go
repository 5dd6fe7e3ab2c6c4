package revenue

import (
	"strconv"
	"strings"
	"time"

	"github.com/taplab/salesdash/internal/pos"
)

const dateLayout = "2006-01-02"

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"1504",
}

func businessDay(h pos.Head) string {
	day := strings.TrimSpace(string(h.BusinessDay))
	if len(day) >= len(dateLayout) {
		day = day[:len(dateLayout)]
	}
	if _, err := time.Parse(dateLayout, day); err != nil {
		return ""
	}
	return day
}

// transactionTime resolves when tx happened: first from the timestamp fields,
// then from the business day combined with a head time field.
func transactionTime(h pos.Head, loc *time.Location) (time.Time, bool) {
	for _, raw := range []pos.Text{h.FinishTimestamp, h.Timestamp, h.TransactionTimestamp, h.CreationTimestamp} {
		if t, ok := parseTimestamp(string(raw), loc); ok {
			return t, true
		}
	}

	day := businessDay(h)
	for _, raw := range []pos.Text{h.FinishTime, h.Time, h.TransactionTime} {
		s := strings.TrimSpace(string(raw))
		if s == "" {
			continue
		}
		if t, ok := parseTimestamp(s, loc); ok {
			return t, true
		}
		if day == "" {
			continue
		}
		for _, layout := range clockLayouts {
			if t, err := time.ParseInLocation(dateLayout+" "+layout, day+" "+s, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func parseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// epoch seconds or milliseconds; short digit runs are clock times
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		switch {
		case n >= 1e11:
			return time.UnixMilli(n).In(loc), true
		case n >= 1e9:
			return time.Unix(n, 0).In(loc), true
		default:
			return time.Time{}, false
		}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
