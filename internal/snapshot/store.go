package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/taplab/salesdash/internal/pos"
)

// Entry is one precomputed day in a snapshot file.
type Entry struct {
	Date     string
	Total    decimal.Decimal
	Guests   int64
	Receipts int64
	Items    map[string]EntryItem
	Hourly   *[24]decimal.Decimal
}

type EntryItem struct {
	Name     string
	Revenue  decimal.Decimal
	Quantity decimal.Decimal
}

type rawEntry struct {
	Date         string                  `json:"date"`
	Total        pos.Number              `json:"total"`
	Guests       pos.Number              `json:"guests"`
	Receipts     pos.Number              `json:"receipts"`
	Items        map[string]rawEntryItem `json:"items"`
	Timeline     []rawTimelinePoint      `json:"timeline"`
	HourlyTotals json.RawMessage         `json:"hourly_totals"`
}

type rawEntryItem struct {
	Name     string     `json:"name"`
	Revenue  pos.Number `json:"revenue"`
	Quantity pos.Number `json:"quantity"`
}

type rawTimelinePoint struct {
	Hour    pos.Number `json:"hour"`
	Time    pos.Text   `json:"time"`
	Revenue pos.Number `json:"revenue"`
	Total   pos.Number `json:"total"`
	Amount  pos.Number `json:"amount"`
}

type memo struct {
	modTime time.Time
	size    int64
	entries []Entry
}

// Store reads snapshot files from a directory. Each file is parsed again only
// when its modification time or size changes.
type Store struct {
	dir string

	mu    sync.Mutex
	files map[string]memo
}

// NewStore creates a Store over dir. A missing directory reads as empty.
func NewStore(dir string) *Store {
	return &Store{dir: dir, files: make(map[string]memo)}
}

// Entries returns all snapshot days ordered by date. When several files hold
// the same date, the file that sorts last wins.
func (s *Store) Entries() ([]Entry, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	s.mu.Lock()
	defer s.mu.Unlock()

	byDate := make(map[string]Entry)
	live := make(map[string]bool, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		live[path] = true

		m, ok := s.files[path]
		if !ok || !m.modTime.Equal(info.ModTime()) || m.size != info.Size() {
			entries, err := readFile(path)
			if err != nil {
				return nil, err
			}
			m = memo{modTime: info.ModTime(), size: info.Size(), entries: entries}
			s.files[path] = m
		}
		for _, e := range m.entries {
			byDate[e.Date] = e
		}
	}
	for path := range s.files {
		if !live[path] {
			delete(s.files, path)
		}
	}

	out := make([]Entry, 0, len(byDate))
	for _, e := range byDate {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func readFile(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)

	var raws []rawEntry
	if len(b) > 0 && b[0] == '{' {
		var doc struct {
			Days []rawEntry `json:"days"`
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("parse snapshot %s: %w", filepath.Base(path), err)
		}
		raws = doc.Days
	} else if err := json.Unmarshal(b, &raws); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", filepath.Base(path), err)
	}

	entries := make([]Entry, 0, len(raws))
	for _, r := range raws {
		if e, ok := r.entry(); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r rawEntry) entry() (Entry, bool) {
	date := strings.TrimSpace(r.Date)
	if len(date) > 10 {
		date = date[:10]
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return Entry{}, false
	}

	e := Entry{
		Date:  date,
		Total: r.Total.Decimal(),
		Items: make(map[string]EntryItem, len(r.Items)),
	}
	if n, ok := r.Guests.Int(); ok {
		e.Guests = n
	}
	if n, ok := r.Receipts.Int(); ok {
		e.Receipts = n
	}
	for sku, it := range r.Items {
		e.Items[sku] = EntryItem{Name: strings.TrimSpace(it.Name), Revenue: it.Revenue.Decimal(), Quantity: it.Quantity.Decimal()}
	}

	if hours, ok := parseHourlyTotals(r.HourlyTotals); ok {
		e.Hourly = hours
	} else if hours, ok := timelineHours(r.Timeline); ok {
		e.Hourly = hours
	}
	return e, true
}

// parseHourlyTotals accepts a 24-slot array or an object keyed by hour
// ("18" or "18:00").
func parseHourlyTotals(raw json.RawMessage) (*[24]decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	var hours [24]decimal.Decimal

	var list []pos.Number
	if err := json.Unmarshal(raw, &list); err == nil {
		for i, n := range list {
			if i < len(hours) {
				hours[i] = n.Decimal()
			}
		}
		return &hours, true
	}

	var byHour map[string]pos.Number
	if err := json.Unmarshal(raw, &byHour); err != nil {
		return nil, false
	}
	for key, n := range byHour {
		if h, ok := parseHour(key); ok {
			hours[h] = hours[h].Add(n.Decimal())
		}
	}
	return &hours, true
}

func timelineHours(points []rawTimelinePoint) (*[24]decimal.Decimal, bool) {
	if len(points) == 0 {
		return nil, false
	}
	var hours [24]decimal.Decimal
	found := false
	for _, p := range points {
		h, ok := -1, false
		if n, valid := p.Hour.Int(); valid && n >= 0 && n < 24 {
			h, ok = int(n), true
		} else {
			h, ok = parseHour(string(p.Time))
		}
		if !ok {
			continue
		}
		amount := p.Revenue
		if !amount.Valid {
			amount = p.Total
		}
		if !amount.Valid {
			amount = p.Amount
		}
		hours[h] = hours[h].Add(amount.Decimal())
		found = true
	}
	return &hours, found
}

func parseHour(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[i+1:]
	}
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}
