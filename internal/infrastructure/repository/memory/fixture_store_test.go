package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/id"
)

func newTestStore() *FixtureStore {
	now := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	return NewFixtureStore(nil,
		WithIDGenerator(id.NewSequence("fx")),
		WithClock(func() time.Time { return now }),
	)
}

func TestFixtureStore_UpsertDeduplicatesOnIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	kickoff := time.Date(2026, 10, 24, 17, 0, 0, 0, time.UTC)

	first, err := store.Upsert(ctx, fixture.Fixture{CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: kickoff})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.Outcome != fixture.UpsertCreated || first.Fixture.ID != "fx_1" {
		t.Fatalf("unexpected first upsert: %+v", first)
	}

	again, err := store.Upsert(ctx, fixture.Fixture{CompetitionID: "urc", TeamA: "Munster", TeamB: "Leinster", KickoffAt: kickoff})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if again.Outcome != fixture.UpsertUnchanged || again.Fixture.ID != first.Fixture.ID {
		t.Fatalf("expected reversed sides to match the same fixture, got=%+v", again)
	}
	if again.Fixture.TeamA != "Leinster" {
		t.Fatalf("team identity must not change on merge, got TeamA=%q", again.Fixture.TeamA)
	}
	if !first.Changed || again.Changed {
		t.Fatalf("unexpected change flags: first=%v again=%v", first.Changed, again.Changed)
	}

	venue, err := store.Upsert(ctx, fixture.Fixture{CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: kickoff, Venue: "RDS Arena"})
	if err != nil {
		t.Fatalf("upsert venue: %v", err)
	}
	if venue.Outcome != fixture.UpsertUnchanged || !venue.Changed || venue.Fixture.Venue != "RDS Arena" {
		t.Fatalf("expected venue refresh without kickoff drift, got=%+v", venue)
	}

	moved, err := store.Upsert(ctx, fixture.Fixture{CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: kickoff.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("upsert moved: %v", err)
	}
	if moved.Outcome != fixture.UpsertMerged || !moved.Fixture.KickoffAt.Equal(kickoff.Add(90*time.Minute)) {
		t.Fatalf("expected kickoff drift to merge, got=%+v", moved)
	}

	all, _ := store.ListAll(ctx)
	if len(all) != 1 {
		t.Fatalf("unexpected fixture count: got=%d want=%d", len(all), 1)
	}
}

func TestFixtureStore_ConcurrentUpsertsCreateOneFixture(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFixtureStore(nil)
	kickoff := time.Date(2026, 10, 24, 17, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = store.Upsert(ctx, fixture.Fixture{
				CompetitionID: "urc",
				TeamA:         "Ulster",
				TeamB:         "Connacht",
				KickoffAt:     kickoff.Add(time.Duration(i) * time.Minute),
			})
		}(i)
	}
	wg.Wait()

	all, _ := store.ListAll(ctx)
	if len(all) != 1 {
		t.Fatalf("unexpected fixture count: got=%d want=%d", len(all), 1)
	}
}

func TestFixtureStore_AttachResultIsWriteIfAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	created, err := store.Upsert(ctx, fixture.Fixture{
		CompetitionID: "urc",
		TeamA:         "Leinster",
		TeamB:         "Munster",
		KickoffAt:     time.Date(2026, 10, 24, 17, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	results := []fixture.Result{
		fixture.ResultFromScores("Leinster", "Munster", 24, 18),
		fixture.ResultFromScores("Leinster", "Munster", 10, 30),
	}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		resolved int
	)
	for _, result := range results {
		wg.Add(1)
		go func(result fixture.Result) {
			defer wg.Done()
			_, err := store.AttachResult(ctx, created.Fixture.ID, result)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, fixture.ErrAlreadyResolved):
				resolved++
			default:
				t.Errorf("unexpected attach error: %v", err)
			}
		}(result)
	}
	wg.Wait()

	if wins != 1 || resolved != 1 {
		t.Fatalf("expected exactly one writer to win: wins=%d resolved=%d", wins, resolved)
	}

	got, ok, _ := store.GetByID(ctx, created.Fixture.ID)
	if !ok || got.State() != fixture.StateCompleted {
		t.Fatalf("unexpected fixture after attach: %+v", got)
	}
}

func TestFixtureStore_AttachResultUnknownFixture(t *testing.T) {
	t.Parallel()

	_, err := newTestStore().AttachResult(context.Background(), "missing", fixture.Result{})
	if !errors.Is(err, fixture.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}
}

func TestFixtureStore_OverrideResultResetsScoring(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()
	created, _ := store.Upsert(ctx, fixture.Fixture{
		CompetitionID: "urc",
		TeamA:         "Leinster",
		TeamB:         "Munster",
		KickoffAt:     time.Date(2026, 10, 24, 17, 0, 0, 0, time.UTC),
	})
	if _, err := store.AttachResult(ctx, created.Fixture.ID, fixture.ResultFromScores("Leinster", "Munster", 24, 18)); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := store.MarkScored(ctx, created.Fixture.ID, time.Now()); err != nil {
		t.Fatalf("mark scored: %v", err)
	}

	got, err := store.OverrideResult(ctx, created.Fixture.ID, fixture.ResultFromScores("Leinster", "Munster", 24, 25))
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if got.State() != fixture.StateCompleted || got.Result.Winner != "Munster" {
		t.Fatalf("unexpected override result: %+v", got)
	}
}

func TestFixtureStore_ListKickoffBetween(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2026, 10, 24, 17, 0, 0, 0, time.UTC)
	store := NewFixtureStore([]fixture.Fixture{
		{ID: "b", CompetitionID: "urc", TeamA: "Ulster", TeamB: "Connacht", KickoffAt: base.Add(24 * time.Hour)},
		{ID: "a", CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: base},
		{ID: "c", CompetitionID: "urc", TeamA: "Lions", TeamB: "Bulls", KickoffAt: base.Add(10 * 24 * time.Hour)},
	})

	got, err := store.ListKickoffBetween(ctx, base.Add(-time.Hour), base.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected window: %+v", got)
	}
}
