package fixture

import (
	"context"
	"time"
)

type UpsertOutcome string

const (
	UpsertCreated UpsertOutcome = "created"
	// UpsertMerged means an existing fixture matched and its kickoff drifted.
	UpsertMerged UpsertOutcome = "merged"
	// UpsertUnchanged means an existing fixture matched with the same kickoff.
	UpsertUnchanged UpsertOutcome = "unchanged"
)

type UpsertResult struct {
	Outcome UpsertOutcome
	Fixture Fixture
	// Changed reports whether the stored fixture was written, which includes
	// venue or UID refreshes that leave the outcome Unchanged.
	Changed bool
}

// OutcomeFor classifies a merge of candidate data into prev.
func OutcomeFor(prev, merged Fixture) UpsertOutcome {
	if !prev.KickoffAt.Equal(merged.KickoffAt) {
		return UpsertMerged
	}
	return UpsertUnchanged
}

// Store is the system of record for fixtures.
//
// Upsert deduplicates on fixture identity. AttachResult is a write-if-absent
// operation and returns ErrAlreadyResolved when a result is already stored,
// which lets concurrent reconciliation runs race without locking.
type Store interface {
	Upsert(ctx context.Context, candidate Fixture) (UpsertResult, error)
	AttachResult(ctx context.Context, fixtureID string, result Result) (Fixture, error)
	OverrideResult(ctx context.Context, fixtureID string, result Result) (Fixture, error)
	MarkScored(ctx context.Context, fixtureID string, at time.Time) error
	GetByID(ctx context.Context, fixtureID string) (Fixture, bool, error)
	ListAll(ctx context.Context) ([]Fixture, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]Fixture, error)
	ListKickoffBetween(ctx context.Context, from, to time.Time) ([]Fixture, error)
}
