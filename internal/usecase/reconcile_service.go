package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
)

// DefaultMatchTolerance bounds how far a fixture's kickoff may sit from the
// middle of the score page's day. 36h covers the neighbouring days, which
// absorbs time zone differences between the calendar and the score site.
const DefaultMatchTolerance = 36 * time.Hour

const maxAliasSuggestions = 3

// UnmatchedResult is a scraped row that could not be tied to a fixture. It is
// surfaced so an operator can extend the alias table.
type UnmatchedResult struct {
	Scraped      ScrapedResult `json:"scraped"`
	TeamA        string        `json:"team_a"`
	TeamB        string        `json:"team_b"`
	Reason       string        `json:"reason"`
	SuggestionsA []string      `json:"suggestions_a,omitempty"`
	SuggestionsB []string      `json:"suggestions_b,omitempty"`
}

type ReconcileResult struct {
	Processed         int               `json:"processed"`
	UpdatedCount      int               `json:"updated_count"`
	AlreadyResolved   int               `json:"already_resolved"`
	Failed            int               `json:"failed"`
	UpdatedFixtureIDs []string          `json:"updated_fixture_ids"`
	Unmatched         []UnmatchedResult `json:"unmatched"`
	Ambiguous         []UnmatchedResult `json:"ambiguous"`
}

type ReconcileConfig struct {
	MatchTolerance time.Duration
	// KnownTeams seeds alias suggestions in addition to fixture team names.
	KnownTeams []string
	Logger     *logging.Logger
}

type ReconcileService struct {
	fixtures   fixture.Store
	normalizer *teamname.Normalizer
	tolerance  time.Duration
	knownTeams []string
	logger     *logging.Logger
}

func NewReconcileService(fixtures fixture.Store, normalizer *teamname.Normalizer, cfg ReconcileConfig) *ReconcileService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	tolerance := cfg.MatchTolerance
	if tolerance <= 0 {
		tolerance = DefaultMatchTolerance
	}
	return &ReconcileService{
		fixtures:   fixtures,
		normalizer: normalizer,
		tolerance:  tolerance,
		knownTeams: append([]string(nil), cfg.KnownTeams...),
		logger:     logger,
	}
}

type indexedFixture struct {
	fixture fixture.Fixture
	keyA    string
	keyB    string
}

type fixtureCandidate struct {
	index   int
	swapped bool
	delta   time.Duration
}

// Reconcile attaches scraped results to fixtures that do not have one yet.
// Running it twice over the same input changes nothing the second time.
func (s *ReconcileService) Reconcile(ctx context.Context, scraped []ScrapedResult) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Reconcile")
	defer span.End()

	result := ReconcileResult{
		UpdatedFixtureIDs: make([]string, 0),
		Unmatched:         make([]UnmatchedResult, 0),
		Ambiguous:         make([]UnmatchedResult, 0),
	}
	if len(scraped) == 0 {
		return result, nil
	}

	from, to := s.window(scraped)
	snapshot, err := s.fixtures.ListKickoffBetween(ctx, from, to)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list fixtures for reconciliation: %w", err)
	}

	index := make([]indexedFixture, 0, len(snapshot))
	for _, item := range snapshot {
		index = append(index, indexedFixture{
			fixture: item,
			keyA:    teamname.MatchKey(s.normalizer.Normalize(item.TeamA)),
			keyB:    teamname.MatchKey(s.normalizer.Normalize(item.TeamB)),
		})
	}

	for _, row := range scraped {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		teamA := s.normalizer.Normalize(row.RawTeamA)
		teamB := s.normalizer.Normalize(row.RawTeamB)
		unmatched := UnmatchedResult{Scraped: row, TeamA: teamA, TeamB: teamB}

		switch {
		case row.ScoreA < 0 || row.ScoreB < 0:
			unmatched.Reason = "negative score"
			result.Unmatched = append(result.Unmatched, unmatched)
			continue
		case teamA == "" || teamB == "":
			unmatched.Reason = "empty team name"
			result.Unmatched = append(result.Unmatched, unmatched)
			continue
		}
		keyA := teamname.MatchKey(teamA)
		keyB := teamname.MatchKey(teamB)
		if keyA == keyB {
			unmatched.Reason = "same team on both sides"
			result.Unmatched = append(result.Unmatched, unmatched)
			continue
		}

		best, ambiguous, found := s.pick(index, keyA, keyB, pageMidpoint(row.SourceDate))
		if !found {
			unmatched.Reason = "no fixture for team pairing near source date"
			unmatched.SuggestionsA = s.suggest(teamA, index)
			unmatched.SuggestionsB = s.suggest(teamB, index)
			result.Unmatched = append(result.Unmatched, unmatched)
			s.logger.InfoContext(ctx, "scraped result unmatched",
				"team_a", teamA,
				"team_b", teamB,
				"raw_team_a", row.RawTeamA,
				"raw_team_b", row.RawTeamB,
				"source_date", row.SourceDate.Format(time.DateOnly),
			)
			continue
		}
		if ambiguous {
			unmatched.Reason = "several fixtures equally near source date"
			result.Ambiguous = append(result.Ambiguous, unmatched)
			s.logger.WarnContext(ctx, "scraped result ambiguous",
				"team_a", teamA,
				"team_b", teamB,
				"source_date", row.SourceDate.Format(time.DateOnly),
			)
			continue
		}

		target := &index[best.index]
		if target.fixture.HasResult() {
			result.AlreadyResolved++
			continue
		}

		scoreA, scoreB := row.ScoreA, row.ScoreB
		if best.swapped {
			scoreA, scoreB = scoreB, scoreA
		}
		outcome := fixture.ResultFromScores(target.fixture.TeamA, target.fixture.TeamB, scoreA, scoreB)

		updated, err := s.fixtures.AttachResult(ctx, target.fixture.ID, outcome)
		switch {
		case errors.Is(err, fixture.ErrAlreadyResolved):
			result.AlreadyResolved++
			if updated.ID != "" {
				target.fixture = updated
			}
			continue
		case err != nil:
			result.Failed++
			s.logger.WarnContext(ctx, "attach result failed", "fixture_id", target.fixture.ID, "error", err)
			continue
		}

		target.fixture = updated
		result.UpdatedCount++
		result.UpdatedFixtureIDs = append(result.UpdatedFixtureIDs, updated.ID)
		s.logger.InfoContext(ctx, "fixture result attached",
			"fixture_id", updated.ID,
			"team_a", updated.TeamA,
			"team_b", updated.TeamB,
			"score_a", outcome.ScoreA,
			"score_b", outcome.ScoreB,
			"winner", outcome.Winner,
			"margin", outcome.Margin,
		)
	}

	s.logger.InfoContext(ctx, "reconciliation finished",
		"processed", result.Processed,
		"updated", result.UpdatedCount,
		"already_resolved", result.AlreadyResolved,
		"unmatched", len(result.Unmatched),
		"ambiguous", len(result.Ambiguous),
		"failed", result.Failed,
	)
	return result, nil
}

func (s *ReconcileService) pick(index []indexedFixture, keyA, keyB string, center time.Time) (fixtureCandidate, bool, bool) {
	candidates := make([]fixtureCandidate, 0, 2)
	for i, item := range index {
		var swapped bool
		switch {
		case item.keyA == keyA && item.keyB == keyB:
		case item.keyA == keyB && item.keyB == keyA:
			swapped = true
		default:
			continue
		}
		delta := item.fixture.KickoffAt.Sub(center)
		if delta < 0 {
			delta = -delta
		}
		if delta > s.tolerance {
			continue
		}
		candidates = append(candidates, fixtureCandidate{index: i, swapped: swapped, delta: delta})
	}
	if len(candidates) == 0 {
		return fixtureCandidate{}, false, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].delta < candidates[j].delta
	})
	ambiguous := len(candidates) > 1 && candidates[0].delta == candidates[1].delta
	return candidates[0], ambiguous, true
}

func (s *ReconcileService) suggest(name string, index []indexedFixture) []string {
	seen := make(map[string]struct{}, len(s.knownTeams)+len(index)*2)
	known := make([]string, 0, len(s.knownTeams)+len(index)*2)
	add := func(value string) {
		if value == "" || value == name {
			return
		}
		if _, ok := seen[value]; ok {
			return
		}
		seen[value] = struct{}{}
		known = append(known, value)
	}
	for _, value := range s.knownTeams {
		add(value)
	}
	for _, item := range index {
		add(item.fixture.TeamA)
		add(item.fixture.TeamB)
	}
	return teamname.Suggest(name, known, maxAliasSuggestions)
}

func (s *ReconcileService) window(scraped []ScrapedResult) (time.Time, time.Time) {
	minDate := scraped[0].SourceDate
	maxDate := scraped[0].SourceDate
	for _, row := range scraped[1:] {
		if row.SourceDate.Before(minDate) {
			minDate = row.SourceDate
		}
		if row.SourceDate.After(maxDate) {
			maxDate = row.SourceDate
		}
	}
	return pageMidpoint(minDate).Add(-s.tolerance), pageMidpoint(maxDate).Add(s.tolerance)
}

func pageMidpoint(date time.Time) time.Time {
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}
