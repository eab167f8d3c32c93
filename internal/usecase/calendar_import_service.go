package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/competition"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

const defaultImportWorkers = 4

var titleSeparatorRe = regexp.MustCompile(`(?i)\s+(?:vs\.?|v\.?)\s+`)

type ImportResult struct {
	CompetitionID string `json:"competition_id"`
	Added         int    `json:"added"`
	Updated       int    `json:"updated"`
	Unchanged     int    `json:"unchanged"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	Error         string `json:"error,omitempty"`
}

type CalendarImportService struct {
	competitions competition.Repository
	fixtures     fixture.Store
	normalizer   *teamname.Normalizer
	parser       CalendarParser
	fetcher      CalendarFetcher
	maxWorkers   int
	logger       *logging.Logger
}

type CalendarImportConfig struct {
	MaxWorkers int
	Logger     *logging.Logger
}

func NewCalendarImportService(
	competitions competition.Repository,
	fixtures fixture.Store,
	normalizer *teamname.Normalizer,
	parser CalendarParser,
	fetcher CalendarFetcher,
	cfg CalendarImportConfig,
) *CalendarImportService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = defaultImportWorkers
	}
	return &CalendarImportService{
		competitions: competitions,
		fixtures:     fixtures,
		normalizer:   normalizer,
		parser:       parser,
		fetcher:      fetcher,
		maxWorkers:   workers,
		logger:       logger,
	}
}

// Import parses one competition's feed text and upserts every readable
// fixture. Bad entries are logged and skipped; they never abort the batch.
func (s *CalendarImportService) Import(ctx context.Context, competitionID, feedText string) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CalendarImportService.Import")
	defer span.End()

	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return ImportResult{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	entries, err := s.parser.Parse(feedText)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: parse calendar feed competition=%s: %v", ErrInvalidInput, competitionID, err)
	}

	result := ImportResult{CompetitionID: competitionID}
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		candidate, reason := s.candidateFromEntry(competitionID, entry)
		if reason != "" {
			result.Skipped++
			s.logger.DebugContext(ctx, "skip calendar entry",
				"competition_id", competitionID,
				"index", i,
				"uid", entry.UID,
				"summary", entry.Summary,
				"reason", reason,
			)
			continue
		}

		upserted, err := s.fixtures.Upsert(ctx, candidate)
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "upsert calendar fixture failed",
				"competition_id", competitionID,
				"uid", entry.UID,
				"summary", entry.Summary,
				"error", err,
			)
			continue
		}
		switch upserted.Outcome {
		case fixture.UpsertCreated:
			result.Added++
		case fixture.UpsertMerged:
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	s.logger.InfoContext(ctx, "calendar import finished",
		"competition_id", competitionID,
		"entries", len(entries),
		"added", result.Added,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// ImportCompetition fetches a competition's configured feed and imports it.
func (s *CalendarImportService) ImportCompetition(ctx context.Context, competitionID string) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CalendarImportService.ImportCompetition")
	defer span.End()

	item, exists, err := s.competitions.GetByID(ctx, strings.TrimSpace(competitionID))
	if err != nil {
		return ImportResult{}, fmt.Errorf("get competition: %w", err)
	}
	if !exists {
		return ImportResult{}, fmt.Errorf("%w: competition=%s", ErrNotFound, competitionID)
	}
	return s.importFromFeed(ctx, item)
}

// ImportFromURL imports a feed from an explicit URL on behalf of a competition,
// for feeds that are not part of the configured list.
func (s *CalendarImportService) ImportFromURL(ctx context.Context, competitionID, feedURL string) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CalendarImportService.ImportFromURL")
	defer span.End()

	return s.importFromFeed(ctx, competition.Competition{
		ID:      strings.TrimSpace(competitionID),
		FeedURL: feedURL,
	})
}

// ImportAll imports every configured competition concurrently. A failing
// feed is reported in its own row and does not stop the others.
func (s *CalendarImportService) ImportAll(ctx context.Context) ([]ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CalendarImportService.ImportAll")
	defer span.End()

	items, err := s.competitions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}

	p := pool.NewWithResults[ImportResult]().WithMaxGoroutines(s.maxWorkers)
	for _, item := range items {
		item := item
		p.Go(func() ImportResult {
			row, err := s.importFromFeed(ctx, item)
			if err != nil {
				s.logger.WarnContext(ctx, "calendar import failed", "competition_id", item.ID, "error", err)
				return ImportResult{CompetitionID: item.ID, Error: err.Error()}
			}
			return row
		})
	}
	out := p.Wait()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompetitionID < out[j].CompetitionID
	})
	return out, nil
}

func (s *CalendarImportService) importFromFeed(ctx context.Context, item competition.Competition) (ImportResult, error) {
	if s.fetcher == nil {
		return ImportResult{}, fmt.Errorf("%w: calendar fetcher is not configured", ErrDependencyUnavailable)
	}
	feedURL := competition.NormalizeFeedURL(item.FeedURL)
	if feedURL == "" {
		return ImportResult{}, fmt.Errorf("%w: competition %s has no feed url", ErrInvalidInput, item.ID)
	}

	started := time.Now()
	text, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return ImportResult{}, fmt.Errorf("fetch calendar feed competition=%s: %w", item.ID, err)
	}
	s.logger.DebugContext(ctx, "calendar feed fetched",
		"competition_id", item.ID,
		"bytes", len(text),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return s.Import(ctx, item.ID, text)
}

func (s *CalendarImportService) candidateFromEntry(competitionID string, entry CalendarEntry) (fixture.Fixture, string) {
	if entry.Err != nil {
		return fixture.Fixture{}, "unreadable entry: " + entry.Err.Error()
	}
	if entry.StartAt.IsZero() {
		return fixture.Fixture{}, "missing start time"
	}

	rawA, rawB, ok := SplitFixtureTitle(entry.Summary)
	if !ok {
		return fixture.Fixture{}, "title is not a two-sided fixture"
	}
	teamA := s.normalizer.Normalize(rawA)
	teamB := s.normalizer.Normalize(rawB)
	if teamname.IsPlaceholder(teamA) && teamname.IsPlaceholder(teamB) {
		return fixture.Fixture{}, "both teams are placeholders"
	}
	if teamA == "" || teamB == "" {
		return fixture.Fixture{}, "empty team name"
	}
	if teamname.MatchKey(teamA) == teamname.MatchKey(teamB) {
		return fixture.Fixture{}, "same team on both sides"
	}

	return fixture.Fixture{
		CompetitionID: competitionID,
		TeamA:         teamA,
		TeamB:         teamB,
		KickoffAt:     entry.StartAt.UTC(),
		Venue:         strings.TrimSpace(entry.Location),
		SourceUID:     strings.TrimSpace(entry.UID),
	}, ""
}

// SplitFixtureTitle splits "A vs B", "A vs. B" and "A v B" into raw sides.
func SplitFixtureTitle(title string) (string, string, bool) {
	parts := titleSeparatorRe.Split(strings.TrimSpace(title), -1)
	if len(parts) != 2 {
		return "", "", false
	}
	a := strings.TrimSpace(parts[0])
	b := strings.TrimSpace(parts[1])
	if a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}
