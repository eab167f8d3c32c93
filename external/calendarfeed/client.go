package calendarfeed

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/competition"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/resilience"
	"github.com/eoinvoconnor/rugby-backend/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

const (
	defaultTimeout      = 20 * time.Second
	defaultMaxRedirects = 5
	maxFeedBytes        = 8 << 20
)

var errCalendarTransient = crerr.New("calendar feed transient failure")

type ClientConfig struct {
	Timeout        time.Duration
	MaxRedirects   int
	UserAgent      string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client downloads calendar feeds.
type Client struct {
	http         *fasthttp.Client
	maxRedirects int
	logger       *logging.Logger
	breaker      *resilience.Breaker
	flight       resilience.Group[string]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	redirects := cfg.MaxRedirects
	if redirects <= 0 {
		redirects = defaultMaxRedirects
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = "rugby-backend-calendar/1.0"
	}
	return &Client{
		http: &fasthttp.Client{
			Name:                userAgent,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxFeedBytes,
		},
		maxRedirects: redirects,
		logger:       logger,
		breaker:      resilience.NewBreaker("calendar_feed", cfg.CircuitBreaker, resilience.WithStateLogger(logger)),
	}
}

// Fetch downloads the feed at feedURL. webcal:// links are fetched over
// https.
func (c *Client) Fetch(ctx context.Context, feedURL string) (string, error) {
	target, err := validateFeedURL(competition.NormalizeFeedURL(feedURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, _, err := c.flight.Do(ctx, target, func() (string, error) {
		return resilience.Guard(c.breaker, isCalendarCircuitFailure, func() (string, error) {
			return c.download(target)
		})
	})
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "calendar feed circuit breaker rejected request", "state", c.breaker.State())
		return "", fmt.Errorf("%w: calendar feed host is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "calendar feed request failed", "url", target, "error", err)
		return "", err
	}
	return text, nil
}

func (c *Client) download(target string) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(target)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "text/calendar, text/plain;q=0.9, */*;q=0.5")

	if err := c.http.DoRedirects(req, resp, c.maxRedirects); err != nil {
		return "", fmt.Errorf("%w: send request: %v", errCalendarTransient, err)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := resp.BodyWriteTo(buf); err != nil {
		return "", fmt.Errorf("%w: read response body: %v", errCalendarTransient, err)
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		if isRetryableStatus(status) {
			return "", fmt.Errorf("%w: calendar feed status=%d body=%s", errCalendarTransient, status, abbreviateBody(buf.String()))
		}
		return "", fmt.Errorf("calendar feed status=%d body=%s", status, abbreviateBody(buf.String()))
	}
	return buf.String(), nil
}

func isCalendarCircuitFailure(err error) bool {
	return err != nil && stderrors.Is(err, errCalendarTransient)
}

func validateFeedURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("feed url is empty")
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http, https or webcal", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}
	return candidate, nil
}

func isRetryableStatus(code int) bool {
	return code == fasthttp.StatusRequestTimeout ||
		code == fasthttp.StatusTooManyRequests ||
		code >= fasthttp.StatusInternalServerError
}

func abbreviateBody(body string) string {
	text := strings.TrimSpace(body)
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

var _ usecase.CalendarFetcher = (*Client)(nil)
