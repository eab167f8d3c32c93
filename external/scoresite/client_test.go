package scoresite

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/platform/cache"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/resilience"
	"github.com/eoinvoconnor/rugby-backend/internal/usecase"
)

const headToHeadPage = `<html><body>
<section>
  <h2>United Rugby Championship</h2>
  <div class="ssrcss-1 HeadToHeadWrapper">
    <span class="ssrcss-2 DesktopValue">Leinster</span>
    <div class="ssrcss-3 HomeScore">24</div>
    <div class="ssrcss-4 AwayScore">18</div>
    <span class="ssrcss-2 DesktopValue">Munster</span>
  </div>
  <div class="ssrcss-1 HeadToHeadWrapper">
    <span class="ssrcss-2 DesktopValue">Ulster</span>
    <div class="ssrcss-3 HomeScore">19:35</div>
    <div class="ssrcss-4 AwayScore"></div>
    <span class="ssrcss-2 DesktopValue">Connacht</span>
  </div>
</section>
</body></html>`

const fixtureBlockPage = `<html><body>
<section>
  <h3>Gallagher Premiership</h3>
  <article class="sp-c-fixture">
    <abbr class="sp-c-fixture__team-name-trunc"><span>Bath Rugby</span></abbr>
    <span class="sp-c-fixture__number sp-c-fixture__number--home sp-c-fixture__number--ft">31</span>
    <span class="sp-c-fixture__number sp-c-fixture__number--away sp-c-fixture__number--ft">17</span>
    <abbr class="sp-c-fixture__team-name-trunc"><span>Saracens</span></abbr>
  </article>
</section>
</body></html>`

func TestParsePage_PrimaryScheme(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 10, 24, 15, 0, 0, 0, time.UTC)
	got, scheme, err := ParsePage(strings.NewReader(headToHeadPage), date, nil)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	if scheme != "head-to-head" {
		t.Fatalf("unexpected scheme: got=%q", scheme)
	}
	if len(got) != 1 {
		t.Fatalf("unplayed fixtures must be dropped: got=%d rows", len(got))
	}
	row := got[0]
	if row.RawTeamA != "Leinster" || row.RawTeamB != "Munster" || row.ScoreA != 24 || row.ScoreB != 18 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if !row.SourceDate.Equal(time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("source date must be the page day: got=%s", row.SourceDate)
	}
	if row.Competition != "United Rugby Championship" {
		t.Fatalf("unexpected competition label: got=%q", row.Competition)
	}
}

func TestParsePage_FallbackScheme(t *testing.T) {
	t.Parallel()

	got, scheme, err := ParsePage(strings.NewReader(fixtureBlockPage), time.Now(), nil)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	if scheme != "fixture-block" || len(got) != 1 {
		t.Fatalf("unexpected parse: scheme=%q rows=%d", scheme, len(got))
	}
	if got[0].RawTeamA != "Bath Rugby" || got[0].RawTeamB != "Saracens" || got[0].ScoreA != 31 || got[0].ScoreB != 17 {
		t.Fatalf("unexpected row: %+v", got[0])
	}
}

func TestParsePage_FallsBackWhenPrimaryRowsAreEmpty(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<section>
  <div class="ssrcss-1 HeadToHeadWrapper">
    <span class="ssrcss-9 TeamLabel">Leinster</span>
    <div class="ssrcss-8 ScoreHome">24</div>
    <div class="ssrcss-8 ScoreAway">18</div>
    <span class="ssrcss-9 TeamLabel">Munster</span>
  </div>
  <article class="sp-c-fixture">
    <abbr class="sp-c-fixture__team-name-trunc"><span>Leinster</span></abbr>
    <span class="sp-c-fixture__number sp-c-fixture__number--home sp-c-fixture__number--ft">24</span>
    <span class="sp-c-fixture__number sp-c-fixture__number--away sp-c-fixture__number--ft">18</span>
    <abbr class="sp-c-fixture__team-name-trunc"><span>Munster</span></abbr>
  </article>
</section>
</body></html>`

	got, scheme, err := ParsePage(strings.NewReader(page), time.Now(), nil)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	if scheme != "fixture-block" || len(got) != 1 {
		t.Fatalf("expected fallback scheme to yield the row: scheme=%q rows=%d", scheme, len(got))
	}
	if got[0].ScoreA != 24 || got[0].ScoreB != 18 {
		t.Fatalf("unexpected row: %+v", got[0])
	}
}

func TestParsePage_OnlyUnplayedRows(t *testing.T) {
	t.Parallel()

	page := `<html><body><section>
  <div class="ssrcss-1 HeadToHeadWrapper">
    <span class="ssrcss-2 DesktopValue">Ulster</span>
    <div class="ssrcss-3 HomeScore">19:35</div>
    <div class="ssrcss-4 AwayScore"></div>
    <span class="ssrcss-2 DesktopValue">Connacht</span>
  </div>
</section></body></html>`

	got, scheme, err := ParsePage(strings.NewReader(page), time.Now(), nil)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	if len(got) != 0 || scheme != "head-to-head" {
		t.Fatalf("unexpected parse: scheme=%q rows=%d", scheme, len(got))
	}
}

func TestParsePage_NoMatchingMarkup(t *testing.T) {
	t.Parallel()

	got, scheme, err := ParsePage(strings.NewReader("<html><body><p>No fixtures</p></body></html>"), time.Now(), nil)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	if scheme != "" || len(got) != 0 || got == nil {
		t.Fatalf("expected empty result, got scheme=%q rows=%v", scheme, got)
	}
}

func newTestClient(serverURL string, now time.Time, pages *cache.Store) *Client {
	return NewClient(ClientConfig{
		URLPattern: serverURL + "/scores/{date}",
		Timeout:    2 * time.Second,
		MaxWorkers: 2,
		Logger:     logging.NewNop(),
		PageCache:  pages,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 10,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
		Now: func() time.Time { return now },
	})
}

func TestClient_FetchWindow_IsolatesFailedDates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scores/2026-10-24":
			_, _ = w.Write([]byte(headToHeadPage))
		case "/scores/2026-10-25":
			http.Error(w, "upstream down", http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte("<html><body></body></html>"))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, time.Date(2026, 10, 25, 20, 0, 0, 0, time.UTC), nil)
	got, err := client.FetchWindow(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("fetch window: %v", err)
	}
	if len(got.Dates) != 3 {
		t.Fatalf("unexpected date count: got=%d want=3", len(got.Dates))
	}
	if got.FailedDates() != 1 || got.Dates[1].Error == "" {
		t.Fatalf("expected the middle date to fail: %+v", got.Dates)
	}
	if len(got.Results) != 1 || got.Results[0].RawTeamA != "Leinster" {
		t.Fatalf("unexpected results: %+v", got.Results)
	}
	if got.Dates[2].RowsFound != 0 || got.Dates[2].Error != "" {
		t.Fatalf("empty page must report zero rows without error: %+v", got.Dates[2])
	}
}

func TestClient_FetchResults_NonRetryableStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer server.Close()

	client := newTestClient(server.URL, time.Now(), nil)
	_, err := client.FetchResults(context.Background(), time.Now())
	if err == nil || !strings.Contains(err.Error(), "status=404") {
		t.Fatalf("expected status error, got=%v", err)
	}
	if isScoreSiteCircuitFailure(err) {
		t.Fatalf("404 must not count as a transient failure")
	}
}

func TestClient_FetchResults_CachesSettledPages(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(headToHeadPage))
	}))
	defer server.Close()

	now := time.Date(2026, 10, 30, 9, 0, 0, 0, time.UTC)
	client := newTestClient(server.URL, now, cache.NewStore(time.Hour))

	old := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := client.FetchResults(context.Background(), old); err != nil {
			t.Fatalf("fetch settled page: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("settled page must be fetched once: got=%d", hits.Load())
	}

	for i := 0; i < 2; i++ {
		if _, err := client.FetchResults(context.Background(), now); err != nil {
			t.Fatalf("fetch today page: %v", err)
		}
	}
	if hits.Load() != 3 {
		t.Fatalf("today's page must not be cached: got=%d", hits.Load())
	}
}

func TestClient_CircuitBreakerRejectsAfterFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		URLPattern: server.URL + "/{date}",
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})
	if _, err := client.FetchResults(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected upstream error")
	}
	if _, err := client.FetchResults(context.Background(), time.Now()); !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected open circuit, got=%v", err)
	}
}
