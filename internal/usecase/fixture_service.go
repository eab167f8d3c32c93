package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/competition"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
)

// FixtureService is the read side of the fixture store, used by operators to
// inspect what the importer and reconciler have written.
type FixtureService struct {
	competitions competition.Repository
	fixtures     fixture.Store
}

func NewFixtureService(competitions competition.Repository, fixtures fixture.Store) *FixtureService {
	return &FixtureService{
		competitions: competitions,
		fixtures:     fixtures,
	}
}

func (s *FixtureService) ListByCompetition(ctx context.Context, competitionID string) ([]fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.ListByCompetition")
	defer span.End()

	competitionID = strings.ToLower(strings.TrimSpace(competitionID))
	if competitionID == "" {
		return nil, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	_, exists, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("get competition: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: competition=%s", ErrNotFound, competitionID)
	}

	items, err := s.fixtures.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list fixtures by competition: %w", err)
	}
	sortByKickoff(items)

	return items, nil
}

// ListByState lists every fixture in state, or all fixtures when state is empty.
func (s *FixtureService) ListByState(ctx context.Context, state string) ([]fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.ListByState")
	defer span.End()

	state = strings.ToUpper(strings.TrimSpace(state))
	switch state {
	case "", fixture.StateScheduled, fixture.StateCompleted, fixture.StateScored:
	default:
		return nil, fmt.Errorf("%w: unknown fixture state %q", ErrInvalidInput, state)
	}

	items, err := s.fixtures.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}

	out := items[:0]
	for _, item := range items {
		if state == "" || item.State() == state {
			out = append(out, item)
		}
	}
	sortByKickoff(out)

	return out, nil
}

func (s *FixtureService) Get(ctx context.Context, fixtureID string) (fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.Get")
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return fixture.Fixture{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}

	item, exists, err := s.fixtures.GetByID(ctx, fixtureID)
	if err != nil {
		return fixture.Fixture{}, fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return fixture.Fixture{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, fixtureID)
	}

	return item, nil
}

func sortByKickoff(items []fixture.Fixture) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].KickoffAt.Equal(items[j].KickoffAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].KickoffAt.Before(items[j].KickoffAt)
	})
}
