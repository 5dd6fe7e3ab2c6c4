package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/taplab/salesdash/internal/app"
	"github.com/taplab/salesdash/internal/auth"
	"github.com/taplab/salesdash/internal/config"
	"github.com/taplab/salesdash/internal/report"
	"github.com/taplab/salesdash/internal/service"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type options struct {
	from        string
	to          string
	limit       string
	metric      string
	useFunction bool
	baseURL     string
}

func main() {
	_ = godotenv.Load()

	// CLI flags
	opts := options{}
	flag.StringVar(&opts.from, "from", "", "First day (YYYY-MM-DD); defaults to January 1st")
	flag.StringVar(&opts.to, "to", "", "Last day (YYYY-MM-DD); defaults to today")
	flag.StringVar(&opts.limit, "limit", "3", "Number of products to print (1-50)")
	flag.StringVar(&opts.metric, "metric", "revenue", "Ranking metric: revenue or qty")
	flag.BoolVar(&opts.useFunction, "use-function", os.Getenv("USE_FUNCTION") == "1", "Query a running server instead of the POS API")
	flag.StringVar(&opts.baseURL, "base-url", envOr("BASE_URL", "http://localhost:8081"), "Server base URL for -use-function")
	flag.Parse()

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel, "text")
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loc := config.ReportLocation(cfg.Timezone)
	q := buildQuery(opts, time.Now().In(loc))

	var (
		top []report.ItemRow
		err error
	)
	if opts.useFunction {
		top, err = viaFunction(ctx, http.DefaultClient, opts.baseURL, cfg.TokenSecret, q)
	} else {
		sales := app.NewSales(ctx, cfg, logger)
		defer sales.Close()
		var p *report.Payload
		if p, err = sales.Service.Sales(ctx, q, false); err == nil {
			top = p.Top
		}
	}
	if errors.Is(err, service.ErrMissingConfig) {
		fmt.Fprintln(os.Stderr, "Missing env: LIGHTSPEED_X_TOKEN and LIGHTSPEED_BUSINESS_ID")
		fmt.Fprintln(os.Stderr, "Either set them, or pass -use-function against a running server.")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	printTop(os.Stdout, top, q.From, q.To)
}

// buildQuery normalises the flags. A missing or unreadable bound selects the
// year to date.
func buildQuery(opts options, now time.Time) report.Query {
	from, errFrom := report.NormalizeDate(opts.from)
	to, errTo := report.NormalizeDate(opts.to)
	if errFrom != nil || errTo != nil || from == "" || to == "" {
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()).Format(report.DateLayout)
		to = now.Format(report.DateLayout)
	}
	from, to = report.OrderRange(from, to)
	return report.Query{
		From:   from,
		To:     to,
		Metric: report.ParseMetric(opts.metric),
		Limit:  report.ClampLimit(opts.limit),
	}
}

// viaFunction asks a running server for the ranking. A token is minted when
// the server is expected to require one.
func viaFunction(ctx context.Context, client *http.Client, baseURL, secret string, q report.Query) ([]report.ItemRow, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	u = u.JoinPath("/.netlify/functions/lightspeed")
	params := url.Values{}
	params.Set("from", q.From)
	params.Set("to", q.To)
	params.Set("metric", q.Metric)
	params.Set("limit", strconv.Itoa(q.Limit))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if secret != "" {
		token, err := auth.GenerateToken(secret, "salestop", 5*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP_%d: %s", resp.StatusCode, body)
	}

	var p struct {
		Top []report.ItemRow `json:"top"`
	}
	if err := json.Unmarshal(body, &p); err != nil || p.Top == nil {
		return nil, errors.New("unexpected response from function")
	}
	return p.Top, nil
}

var nb = message.NewPrinter(language.MustParse("nb-NO"))

func printTop(w io.Writer, top []report.ItemRow, from, to string) {
	fmt.Fprintf(w, "Lightspeed Top %d produkter (%s .. %s)\n", len(top), from, to)
	fmt.Fprintln(w, "---------------------------------------------")
	for i, t := range top {
		name := t.Name
		if name == "" {
			name = report.UnknownName
		}
		fmt.Fprintf(w, "#%02d  %s  x%s  kr %s\n", i+1, name,
			nb.Sprintf("%v", number.Decimal(t.Quantity, number.MaxFractionDigits(3))),
			nb.Sprintf("%v", number.Decimal(t.Revenue, number.MaxFractionDigits(0))))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
