package scoresite

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/cache"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/resilience"
	"github.com/eoinvoconnor/rugby-backend/internal/usecase"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultURLPattern = "https://www.bbc.com/sport/rugby-union/scores-fixtures/{date}"
	defaultMaxWorkers = 4
	datePlaceholder   = "{date}"
	maxPageBytes      = 6 << 20
)

var errScoreSiteTransient = crerr.New("score site transient failure")

type ClientConfig struct {
	HTTPClient *http.Client
	// URLPattern must contain {date}, which is replaced with YYYY-MM-DD.
	URLPattern     string
	Timeout        time.Duration
	MaxWorkers     int
	Schemes        []SelectorScheme
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	// PageCache keeps pages of past days, which no longer change.
	PageCache *cache.Store
	Now       func() time.Time
}

type Client struct {
	httpClient *http.Client
	urlPattern string
	maxWorkers int
	schemes    []SelectorScheme
	logger     *logging.Logger
	breaker    *resilience.Breaker
	flight     resilience.Group[[]byte]
	pages      *cache.Store
	now        func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	pattern := strings.TrimSpace(cfg.URLPattern)
	if pattern == "" {
		pattern = defaultURLPattern
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = defaultMaxWorkers
	}
	schemes := cfg.Schemes
	if len(schemes) == 0 {
		schemes = DefaultSchemes
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		httpClient: httpClient,
		urlPattern: pattern,
		maxWorkers: workers,
		schemes:    schemes,
		logger:     logger,
		breaker:    resilience.NewBreaker("score_site", cfg.CircuitBreaker, resilience.WithStateLogger(logger)),
		pages:      cfg.PageCache,
		now:        now,
	}
}

type pageResult struct {
	results []usecase.ScrapedResult
	scheme  string
}

// FetchResults returns the finished matches listed on the page for date.
// Rows without two final scores are dropped.
func (c *Client) FetchResults(ctx context.Context, date time.Time) ([]usecase.ScrapedResult, error) {
	page, err := c.fetchDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return page.results, nil
}

// FetchWindow fetches every date in [today-daysBack, today+daysForward]
// concurrently. A failed date is logged and reported in the window; it
// never fails the whole call.
func (c *Client) FetchWindow(ctx context.Context, daysBack, daysForward int) (usecase.ScrapeWindow, error) {
	if daysBack < 0 || daysForward < 0 {
		return usecase.ScrapeWindow{}, fmt.Errorf("%w: window bounds must be >= 0", usecase.ErrInvalidInput)
	}

	y, m, d := c.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 0, daysBack+daysForward+1)
	for offset := -daysBack; offset <= daysForward; offset++ {
		dates = append(dates, today.AddDate(0, 0, offset))
	}

	type dateRow struct {
		outcome usecase.ScrapeDateOutcome
		results []usecase.ScrapedResult
	}
	rows := make(chan dateRow, len(dates))

	var failedCount atomic.Int32
	var rowsFound atomic.Int32

	pool, err := ants.NewPool(minInt(c.maxWorkers, len(dates)))
	if err != nil {
		return usecase.ScrapeWindow{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	var submitErr error
	for _, date := range dates {
		date := date
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := dateRow{outcome: usecase.ScrapeDateOutcome{Date: date}}
			page, err := c.fetchDate(ctx, date)
			if err != nil {
				failedCount.Add(1)
				row.outcome.Error = err.Error()
				c.logger.WarnContext(ctx, "fetch results page failed",
					"date", date.Format(time.DateOnly),
					"duration_ms", time.Since(start).Milliseconds(),
					"error", err,
				)
				rows <- row
				return
			}

			row.results = page.results
			row.outcome.RowsFound = len(page.results)
			row.outcome.Scheme = page.scheme
			rowsFound.Add(int32(len(page.results)))
			c.logger.InfoContext(ctx, "results page fetched",
				"date", date.Format(time.DateOnly),
				"rows_found", len(page.results),
				"scheme", page.scheme,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			rows <- row
		}); err != nil {
			workers.Done()
			submitErr = fmt.Errorf("submit date to worker pool: %w", err)
			break
		}
	}

	workers.Wait()
	close(rows)
	if submitErr != nil {
		return usecase.ScrapeWindow{}, submitErr
	}

	window := usecase.ScrapeWindow{
		Results: make([]usecase.ScrapedResult, 0, rowsFound.Load()),
		Dates:   make([]usecase.ScrapeDateOutcome, 0, len(dates)),
	}
	collected := make([]dateRow, 0, len(dates))
	for row := range rows {
		collected = append(collected, row)
	}
	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].outcome.Date.Before(collected[j].outcome.Date)
	})
	for _, row := range collected {
		window.Dates = append(window.Dates, row.outcome)
		window.Results = append(window.Results, row.results...)
	}

	c.logger.InfoContext(ctx, "results window fetched",
		"dates", len(dates),
		"dates_failed", failedCount.Load(),
		"rows_found", rowsFound.Load(),
	)
	return window, nil
}

func (c *Client) fetchDate(ctx context.Context, date time.Time) (pageResult, error) {
	pageURL := c.pageURL(date)

	var (
		raw []byte
		err error
	)
	if c.pages != nil && c.isSettled(date) {
		var cached any
		cached, err = c.pages.GetOrLoad(ctx, "scoresite:"+pageURL, func(ctx context.Context) (any, error) {
			return c.download(ctx, pageURL)
		})
		if err == nil {
			raw, _ = cached.([]byte)
		}
	} else {
		raw, err = c.download(ctx, pageURL)
	}
	if err != nil {
		return pageResult{}, err
	}

	results, scheme, err := ParsePage(bytes.NewReader(raw), date, c.schemes)
	if err != nil {
		return pageResult{}, fmt.Errorf("parse results page date=%s: %w", date.Format(time.DateOnly), err)
	}
	return pageResult{results: results, scheme: scheme}, nil
}

func (c *Client) download(ctx context.Context, pageURL string) ([]byte, error) {
	raw, _, err := c.flight.Do(ctx, pageURL, func() ([]byte, error) {
		return resilience.Guard(c.breaker, isScoreSiteCircuitFailure, func() ([]byte, error) {
			return c.executeRequest(ctx, pageURL)
		})
	})
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "score site circuit breaker rejected request", "state", c.breaker.State())
		return nil, fmt.Errorf("%w: results page source is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	return raw, err
}

func (c *Client) executeRequest(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", errScoreSiteTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", errScoreSiteTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if isRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: results page status=%d body=%s", errScoreSiteTransient, resp.StatusCode, abbreviateBody(raw))
		}
		return nil, fmt.Errorf("results page status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}
	return raw, nil
}

func (c *Client) pageURL(date time.Time) string {
	return strings.ReplaceAll(c.urlPattern, datePlaceholder, date.UTC().Format(time.DateOnly))
}

// isSettled reports whether date is at least two days in the past, when a
// page has stopped changing.
func (c *Client) isSettled(date time.Time) bool {
	return c.now().UTC().Sub(date.UTC()) > 48*time.Hour
}

func isScoreSiteCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errScoreSiteTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func minInt(left, right int) int {
	if left < right {
		return left
	}
	return right
}
