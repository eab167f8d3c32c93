package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/id"
)

// FixtureStore keeps fixtures in process memory. Every read-modify-write runs
// under one mutex, so identity dedup and write-if-absent hold for concurrent
// callers.
type FixtureStore struct {
	mu        sync.RWMutex
	fixtures  []fixture.Fixture
	byID      map[string]int
	ids       id.Generator
	tolerance time.Duration
	now       func() time.Time
}

type FixtureStoreOption func(*FixtureStore)

func WithDedupTolerance(tolerance time.Duration) FixtureStoreOption {
	return func(s *FixtureStore) {
		if tolerance > 0 {
			s.tolerance = tolerance
		}
	}
}

func WithIDGenerator(gen id.Generator) FixtureStoreOption {
	return func(s *FixtureStore) {
		if gen != nil {
			s.ids = gen
		}
	}
}

func WithClock(now func() time.Time) FixtureStoreOption {
	return func(s *FixtureStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewFixtureStore(fixtures []fixture.Fixture, opts ...FixtureStoreOption) *FixtureStore {
	s := &FixtureStore{
		byID:      make(map[string]int, len(fixtures)),
		ids:       id.NewPrefixedGenerator("fx"),
		tolerance: fixture.DefaultDedupTolerance,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, item := range fixtures {
		if item.ID == "" {
			continue
		}
		if _, exists := s.byID[item.ID]; exists {
			continue
		}
		s.byID[item.ID] = len(s.fixtures)
		s.fixtures = append(s.fixtures, cloneFixture(item))
	}
	return s
}

func (s *FixtureStore) Upsert(_ context.Context, candidate fixture.Fixture) (fixture.UpsertResult, error) {
	if err := candidate.Validate(); err != nil {
		return fixture.UpsertResult{}, err
	}
	candidate.KickoffAt = candidate.KickoffAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if idx, ok := fixture.FindIdentityMatch(s.fixtures, candidate, s.tolerance); ok {
		prev := s.fixtures[idx]
		merged, changed := fixture.Merge(prev, candidate, now)
		if changed {
			s.fixtures[idx] = merged
		}
		return fixture.UpsertResult{
			Outcome: fixture.OutcomeFor(prev, merged),
			Fixture: cloneFixture(merged),
			Changed: changed,
		}, nil
	}

	fixtureID, err := s.ids.NewID()
	if err != nil {
		return fixture.UpsertResult{}, fmt.Errorf("generate fixture id: %w", err)
	}
	created := fixture.Fixture{
		ID:            fixtureID,
		CompetitionID: candidate.CompetitionID,
		TeamA:         candidate.TeamA,
		TeamB:         candidate.TeamB,
		KickoffAt:     candidate.KickoffAt,
		Venue:         candidate.Venue,
		SourceUID:     candidate.SourceUID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.byID[created.ID] = len(s.fixtures)
	s.fixtures = append(s.fixtures, created)

	return fixture.UpsertResult{Outcome: fixture.UpsertCreated, Fixture: cloneFixture(created), Changed: true}, nil
}

func (s *FixtureStore) AttachResult(_ context.Context, fixtureID string, result fixture.Result) (fixture.Fixture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[fixtureID]
	if !ok {
		return fixture.Fixture{}, fmt.Errorf("%w: id=%s", fixture.ErrNotFound, fixtureID)
	}
	item := s.fixtures[idx]
	if item.HasResult() {
		return cloneFixture(item), fixture.ErrAlreadyResolved
	}
	if err := result.Validate(item.TeamA, item.TeamB); err != nil {
		return fixture.Fixture{}, err
	}

	now := s.now().UTC()
	item.Result = &result
	item.ResultAt = &now
	item.ScoredAt = nil
	item.UpdatedAt = now
	s.fixtures[idx] = item
	return cloneFixture(item), nil
}

func (s *FixtureStore) OverrideResult(_ context.Context, fixtureID string, result fixture.Result) (fixture.Fixture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[fixtureID]
	if !ok {
		return fixture.Fixture{}, fmt.Errorf("%w: id=%s", fixture.ErrNotFound, fixtureID)
	}
	item := s.fixtures[idx]
	if err := result.Validate(item.TeamA, item.TeamB); err != nil {
		return fixture.Fixture{}, err
	}

	now := s.now().UTC()
	item.Result = &result
	item.ResultAt = &now
	item.ScoredAt = nil
	item.UpdatedAt = now
	s.fixtures[idx] = item
	return cloneFixture(item), nil
}

func (s *FixtureStore) MarkScored(_ context.Context, fixtureID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[fixtureID]
	if !ok {
		return fmt.Errorf("%w: id=%s", fixture.ErrNotFound, fixtureID)
	}
	item := s.fixtures[idx]
	if !item.HasResult() {
		return fmt.Errorf("%w: fixture %s has no result to score", fixture.ErrInvalidFixture, fixtureID)
	}
	scoredAt := at.UTC()
	item.ScoredAt = &scoredAt
	item.UpdatedAt = s.now().UTC()
	s.fixtures[idx] = item
	return nil
}

func (s *FixtureStore) GetByID(_ context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[fixtureID]
	if !ok {
		return fixture.Fixture{}, false, nil
	}
	return cloneFixture(s.fixtures[idx]), true, nil
}

func (s *FixtureStore) ListAll(_ context.Context) ([]fixture.Fixture, error) {
	return s.filter(func(fixture.Fixture) bool { return true }), nil
}

func (s *FixtureStore) ListByCompetition(_ context.Context, competitionID string) ([]fixture.Fixture, error) {
	return s.filter(func(item fixture.Fixture) bool {
		return strings.EqualFold(item.CompetitionID, competitionID)
	}), nil
}

func (s *FixtureStore) ListKickoffBetween(_ context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	return s.filter(func(item fixture.Fixture) bool {
		return !item.KickoffAt.Before(from) && !item.KickoffAt.After(to)
	}), nil
}

func (s *FixtureStore) filter(keep func(fixture.Fixture) bool) []fixture.Fixture {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(s.fixtures))
	for _, item := range s.fixtures {
		if keep(item) {
			out = append(out, cloneFixture(item))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].KickoffAt.Before(out[j].KickoffAt)
	})
	return out
}

func cloneFixture(item fixture.Fixture) fixture.Fixture {
	if item.Result != nil {
		result := *item.Result
		item.Result = &result
	}
	if item.ResultAt != nil {
		at := *item.ResultAt
		item.ResultAt = &at
	}
	if item.ScoredAt != nil {
		at := *item.ScoredAt
		item.ScoredAt = &at
	}
	return item
}
