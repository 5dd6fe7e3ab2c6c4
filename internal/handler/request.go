package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/report"
)

// Request is a resolved sales request. Mode is one of the enum.Mode values
// and decides which of the other fields are meaningful.
type Request struct {
	Mode        string
	Query       report.Query
	PeriodID    string
	PreferCache bool
	Operator    string
}

// RequestError is a client error detected while resolving a request.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// ResolveRequest decides the mode of a request. Modes are checked in priority
// order: ping, env, period, demo, then the normal sales path.
func ResolveRequest(method string, v url.Values, now time.Time) (Request, *RequestError) {
	if method != http.MethodGet {
		return Request{}, &RequestError{Status: http.StatusMethodNotAllowed, Code: enum.ErrCodeMethodNotAllowed, Message: "Use GET"}
	}
	if truthy(v, "ping") {
		return Request{Mode: enum.ModePing}, nil
	}
	if truthy(v, "env") {
		return Request{Mode: enum.ModeEnv}, nil
	}

	req := Request{
		PreferCache: v.Get("cache") == "1",
		Operator:    strings.TrimSpace(v.Get("operator")),
	}
	q := report.Query{
		Metric:       report.ParseMetric(v.Get("metric")),
		Limit:        report.ClampLimit(v.Get("limit")),
		IncludeDaily: truthy(v, "group") || truthy(v, "daily"),
	}

	date, err := report.NormalizeDate(first(v, "date", "day"))
	if err != nil {
		return Request{}, invalidDate("date")
	}
	from, err := report.NormalizeDate(first(v, "from", "start"))
	if err != nil {
		return Request{}, invalidDate("from")
	}
	to, err := report.NormalizeDate(first(v, "to", "end"))
	if err != nil {
		return Request{}, invalidDate("to")
	}
	if date != "" {
		from, to = date, date
		q.Date = date
	}
	if from != "" && to != "" {
		from, to = report.OrderRange(from, to)
	}
	q.From, q.To = from, to

	if id := first(v, "periodId", "period"); id != "" {
		req.Mode = enum.ModePeriod
		req.PeriodID = id
		req.Query = q
		return req, nil
	}

	// An open window selects the year to date.
	if q.From == "" || q.To == "" {
		q.From = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()).Format(report.DateLayout)
		q.To = now.Format(report.DateLayout)
	}

	if v.Get("demo") == "1" {
		req.Mode = enum.ModeDemo
		req.Query = q
		return req, nil
	}

	req.Mode = enum.ModeSales
	req.Query = q
	return req, nil
}

func invalidDate(param string) *RequestError {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Code:    enum.ErrCodeInvalidDate,
		Message: "Could not parse " + param + "; use YYYY-MM-DD or DD.MM.YYYY",
	}
}

func first(v url.Values, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

// truthy treats a present parameter as set unless it is "0" or "false".
func truthy(v url.Values, key string) bool {
	if !v.Has(key) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v.Get(key))) {
	case "0", "false":
		return false
	}
	return true
}
