package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/infrastructure/repository/memory"
)

const fixturesFile = "fixtures.json"

// FixtureStore keeps the fixture list as one JSON document. Dedup and
// write-if-absent are evaluated against the file as it is on disk at the
// time of the write, so processes sharing a data dir never undo each
// other's results.
type FixtureStore struct {
	doc *document[fixture.Fixture, *memory.FixtureStore]
}

func NewFixtureStore(dataDir string, opts ...memory.FixtureStoreOption) (*FixtureStore, error) {
	doc, err := openDocument(
		filepath.Join(dataDir, fixturesFile),
		func(items []fixture.Fixture) *memory.FixtureStore {
			return memory.NewFixtureStore(items, opts...)
		},
		func(ctx context.Context, view *memory.FixtureStore) ([]fixture.Fixture, error) {
			return view.ListAll(ctx)
		},
	)
	if err != nil {
		return nil, err
	}
	return &FixtureStore{doc: doc}, nil
}

func (s *FixtureStore) Upsert(ctx context.Context, candidate fixture.Fixture) (fixture.UpsertResult, error) {
	var out fixture.UpsertResult
	err := s.doc.update(ctx, func(view *memory.FixtureStore) (bool, error) {
		var err error
		out, err = view.Upsert(ctx, candidate)
		return out.Changed, err
	})
	if err != nil {
		return fixture.UpsertResult{}, err
	}
	return out, nil
}

func (s *FixtureStore) AttachResult(ctx context.Context, fixtureID string, result fixture.Result) (fixture.Fixture, error) {
	var out fixture.Fixture
	err := s.doc.update(ctx, func(view *memory.FixtureStore) (bool, error) {
		var err error
		out, err = view.AttachResult(ctx, fixtureID, result)
		return err == nil, err
	})
	return out, err
}

func (s *FixtureStore) OverrideResult(ctx context.Context, fixtureID string, result fixture.Result) (fixture.Fixture, error) {
	var out fixture.Fixture
	err := s.doc.update(ctx, func(view *memory.FixtureStore) (bool, error) {
		var err error
		out, err = view.OverrideResult(ctx, fixtureID, result)
		return err == nil, err
	})
	if err != nil {
		return fixture.Fixture{}, err
	}
	return out, nil
}

func (s *FixtureStore) MarkScored(ctx context.Context, fixtureID string, at time.Time) error {
	return s.doc.update(ctx, func(view *memory.FixtureStore) (bool, error) {
		err := view.MarkScored(ctx, fixtureID, at)
		return err == nil, err
	})
}

func (s *FixtureStore) GetByID(ctx context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	view, err := s.doc.read()
	if err != nil {
		return fixture.Fixture{}, false, err
	}
	return view.GetByID(ctx, fixtureID)
}

func (s *FixtureStore) ListAll(ctx context.Context) ([]fixture.Fixture, error) {
	view, err := s.doc.read()
	if err != nil {
		return nil, err
	}
	return view.ListAll(ctx)
}

func (s *FixtureStore) ListByCompetition(ctx context.Context, competitionID string) ([]fixture.Fixture, error) {
	view, err := s.doc.read()
	if err != nil {
		return nil, err
	}
	return view.ListByCompetition(ctx, competitionID)
}

func (s *FixtureStore) ListKickoffBetween(ctx context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	view, err := s.doc.read()
	if err != nil {
		return nil, err
	}
	return view.ListKickoffBetween(ctx, from, to)
}
