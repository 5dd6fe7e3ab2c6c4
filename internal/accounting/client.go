package accounting

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/taplab/salesdash/internal/config"
)

const (
	pageSize   = 100
	maxPages   = 500
	sessionTTL = 23 * time.Hour
	renewSlack = 30 * time.Second
)

var (
	// ErrNoCredentials is returned when neither a session token nor a
	// consumer/employee token pair is configured.
	ErrNoCredentials = errors.New("missing TRIPLETEX_* env vars")
	// ErrPageCap is returned when pagination does not finish within maxPages.
	ErrPageCap = errors.New("pagination cap reached without completion")
)

// LedgerError carries a non-2xx response from the ledger API.
type LedgerError struct {
	Status int
	Body   string
	Path   string
}

func (e *LedgerError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("ledger %s: status %d: %s", e.Path, e.Status, body)
}

// Account is the account reference embedded in a posting.
type Account struct {
	ID     int64 `json:"id"`
	Number int   `json:"number"`
}

// Posting is one ledger line.
type Posting struct {
	ID            int64           `json:"id"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Account       *Account        `json:"account,omitempty"`
	AccountNumber int             `json:"accountNumber,omitempty"`
}

// Number returns the account number, preferring the embedded account.
func (p Posting) Number() int {
	if p.Account != nil && p.Account.Number != 0 {
		return p.Account.Number
	}
	return p.AccountNumber
}

// Client talks to the Tripletex v2 API.
type Client struct {
	cfg    config.TripletexConfig
	http   *http.Client
	logger logrus.FieldLogger
	now    func() time.Time

	mu      sync.Mutex
	session string
	expires time.Time
}

// NewClient creates a ledger client.
func NewClient(cfg config.TripletexConfig, logger logrus.FieldLogger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger.WithField("module", "accounting"),
		now:    time.Now,
	}
}

// Session returns a usable session token. A static token wins; otherwise the
// consumer and employee tokens are exchanged and the result is reused until
// shortly before it expires.
func (c *Client) Session(ctx context.Context) (string, error) {
	if c.cfg.SessionToken != "" {
		return c.cfg.SessionToken, nil
	}
	if c.cfg.ConsumerToken == "" || c.cfg.EmployeeToken == "" {
		return "", ErrNoCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.session != "" && now.Before(c.expires.Add(-renewSlack)) {
		return c.session, nil
	}

	params := url.Values{}
	params.Set("consumerToken", c.cfg.ConsumerToken)
	params.Set("employeeToken", c.cfg.EmployeeToken)
	params.Set("expirationDate", now.Add(sessionTTL).UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.cfg.BaseURL+"/token/session/:create?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var out struct {
		Value struct {
			Token string `json:"token"`
		} `json:"value"`
	}
	if err := c.send(req, "/token/session/:create", &out); err != nil {
		return "", err
	}
	if out.Value.Token == "" {
		return "", errors.New("no session token in response")
	}

	c.session = out.Value.Token
	c.expires = now.Add(sessionTTL)
	c.logger.WithField("expires", c.expires).Debug("ledger session created")
	return c.session, nil
}

// Postings pages through /ledger/posting for the inclusive window.
func (c *Client) Postings(ctx context.Context, from, to string) ([]Posting, error) {
	token, err := c.Session(ctx)
	if err != nil {
		return nil, err
	}
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte("0:"+token))

	all := []Posting{}
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("dateFrom", from)
		params.Set("dateTo", to)
		params.Set("page", strconv.Itoa(page))
		params.Set("count", strconv.Itoa(pageSize))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/ledger/posting?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("build posting request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", auth)

		var out struct {
			Values   []Posting `json:"values"`
			Data     []Posting `json:"data"`
			Postings []Posting `json:"postings"`
		}
		if err := c.send(req, "/ledger/posting", &out); err != nil {
			return nil, err
		}
		values := out.Values
		if values == nil {
			values = out.Data
		}
		if values == nil {
			values = out.Postings
		}
		all = append(all, values...)

		c.logger.WithFields(logrus.Fields{
			"page":     page,
			"received": len(values),
			"total":    len(all),
		}).Debug("ledger page fetched")

		if len(values) < pageSize {
			return all, nil
		}
	}
	return nil, ErrPageCap
}

func (c *Client) send(req *http.Request, path string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ledger %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &LedgerError{Status: resp.StatusCode, Body: string(body), Path: path}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode ledger %s: %w", path, err)
	}
	return nil
}
