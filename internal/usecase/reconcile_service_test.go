package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
	"github.com/eoinvoconnor/rugby-backend/internal/infrastructure/repository/memory"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
)

var testKickoff = time.Date(2026, 10, 24, 17, 0, 0, 0, time.UTC)

func newTestNormalizer() *teamname.Normalizer {
	return teamname.NewNormalizer(teamname.NewTableResolver(teamname.AliasTable{
		"Leinster": {"Leinster Rugby"},
		"Munster":  {"Munster Rugby"},
		"Ulster":   {"Ulster Rugby"},
	}))
}

func newTestReconciler(store fixture.Store) *ReconcileService {
	return NewReconcileService(store, newTestNormalizer(), ReconcileConfig{Logger: logging.NewNop()})
}

func TestReconcileService_AttachesLeinsterMunsterResult(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewFixtureStore([]fixture.Fixture{
		{ID: "fx-1", CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: testKickoff},
	})
	service := newTestReconciler(store)
	scraped := []ScrapedResult{{
		RawTeamA:   "🏉 URC: Leinster Rugby",
		RawTeamB:   "Munster",
		ScoreA:     24,
		ScoreB:     18,
		SourceDate: time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC),
	}}

	got, err := service.Reconcile(ctx, scraped)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got.UpdatedCount != 1 {
		t.Fatalf("unexpected updated count: got=%d want=1", got.UpdatedCount)
	}

	item, _, err := store.GetByID(ctx, "fx-1")
	if err != nil {
		t.Fatalf("get fixture: %v", err)
	}
	if item.Result == nil || item.Result.Winner != "Leinster" || item.Result.Margin != 6 {
		t.Fatalf("unexpected result: %+v", item.Result)
	}

	again, err := service.Reconcile(ctx, scraped)
	if err != nil {
		t.Fatalf("reconcile rerun: %v", err)
	}
	if again.UpdatedCount != 0 || again.AlreadyResolved != 1 {
		t.Fatalf("rerun must be a no-op: updated=%d already_resolved=%d", again.UpdatedCount, again.AlreadyResolved)
	}
}

func TestReconcileService_SwappedOrientation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewFixtureStore([]fixture.Fixture{
		{ID: "fx-1", CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: testKickoff},
	})
	service := newTestReconciler(store)

	_, err := service.Reconcile(ctx, []ScrapedResult{{
		RawTeamA:   "Munster Rugby",
		RawTeamB:   "Leinster",
		ScoreA:     18,
		ScoreB:     24,
		SourceDate: time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	item, _, _ := store.GetByID(ctx, "fx-1")
	want := fixture.Result{Winner: "Leinster", Margin: 6, ScoreA: 24, ScoreB: 18}
	if item.Result == nil || *item.Result != want {
		t.Fatalf("unexpected result: got=%+v want=%+v", item.Result, want)
	}
}

func TestReconcileService_UnmatchedWithSuggestions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewFixtureStore([]fixture.Fixture{
		{ID: "fx-1", CompetitionID: "urc", TeamA: "Connacht", TeamB: "Ulster", KickoffAt: testKickoff},
	})
	service := newTestReconciler(store)

	got, err := service.Reconcile(ctx, []ScrapedResult{{
		RawTeamA:   "Connacht Eagles",
		RawTeamB:   "Ulster Rugby",
		ScoreA:     20,
		ScoreB:     20,
		SourceDate: time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got.UpdatedCount != 0 || len(got.Unmatched) != 1 {
		t.Fatalf("expected one unmatched row: updated=%d unmatched=%d", got.UpdatedCount, len(got.Unmatched))
	}
	row := got.Unmatched[0]
	if row.TeamA != "Connacht Eagles" || row.TeamB != "Ulster" {
		t.Fatalf("unexpected normalized names: %q %q", row.TeamA, row.TeamB)
	}
	if len(row.SuggestionsA) == 0 || row.SuggestionsA[0] != "Connacht" {
		t.Fatalf("expected Connacht suggestion, got=%v", row.SuggestionsA)
	}

	item, _, _ := store.GetByID(ctx, "fx-1")
	if item.HasResult() {
		t.Fatalf("unmatched row must not resolve a fixture")
	}
}

func TestReconcileService_OutsideToleranceIsUnmatched(t *testing.T) {
	t.Parallel()

	store := memory.NewFixtureStore([]fixture.Fixture{
		{ID: "fx-1", CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: testKickoff},
	})
	service := newTestReconciler(store)

	got, err := service.Reconcile(context.Background(), []ScrapedResult{{
		RawTeamA:   "Leinster",
		RawTeamB:   "Munster",
		ScoreA:     10,
		ScoreB:     3,
		SourceDate: time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got.UpdatedCount != 0 || len(got.Unmatched) != 1 {
		t.Fatalf("a week-later page must not match: updated=%d unmatched=%d", got.UpdatedCount, len(got.Unmatched))
	}
}

func TestReconcileService_NearestKickoffWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewFixtureStore([]fixture.Fixture{
		{ID: "fx-early", CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: testKickoff.Add(-30 * time.Hour)},
		{ID: "fx-near", CompetitionID: "champions-cup", TeamA: "Leinster", TeamB: "Munster", KickoffAt: testKickoff},
	})
	service := newTestReconciler(store)

	got, err := service.Reconcile(ctx, []ScrapedResult{{
		RawTeamA:   "Leinster",
		RawTeamB:   "Munster",
		ScoreA:     30,
		ScoreB:     10,
		SourceDate: time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(got.UpdatedFixtureIDs) != 1 || got.UpdatedFixtureIDs[0] != "fx-near" {
		t.Fatalf("unexpected updated fixtures: %v", got.UpdatedFixtureIDs)
	}
}

func TestReconcileService_EquidistantCandidatesAreAmbiguous(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)
	store := memory.NewFixtureStore([]fixture.Fixture{
		{ID: "fx-1", CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: day.Add(6 * time.Hour)},
		{ID: "fx-2", CompetitionID: "champions-cup", TeamA: "Leinster", TeamB: "Munster", KickoffAt: day.Add(18 * time.Hour)},
	})
	service := newTestReconciler(store)

	got, err := service.Reconcile(context.Background(), []ScrapedResult{{
		RawTeamA: "Leinster", RawTeamB: "Munster", ScoreA: 12, ScoreB: 9, SourceDate: day,
	}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got.UpdatedCount != 0 || len(got.Ambiguous) != 1 {
		t.Fatalf("expected ambiguous row: updated=%d ambiguous=%d", got.UpdatedCount, len(got.Ambiguous))
	}
}

func TestReconcileService_RejectsBadRows(t *testing.T) {
	t.Parallel()

	store := memory.NewFixtureStore([]fixture.Fixture{
		{ID: "fx-1", CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: testKickoff},
	})
	service := newTestReconciler(store)
	day := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)

	got, err := service.Reconcile(context.Background(), []ScrapedResult{
		{RawTeamA: "Leinster", RawTeamB: "Munster", ScoreA: -1, ScoreB: 3, SourceDate: day},
		{RawTeamA: "🏉", RawTeamB: "Munster", ScoreA: 1, ScoreB: 3, SourceDate: day},
		{RawTeamA: "Leinster Rugby", RawTeamB: "Leinster", ScoreA: 1, ScoreB: 3, SourceDate: day},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got.Processed != 3 || len(got.Unmatched) != 3 || got.UpdatedCount != 0 {
		t.Fatalf("unexpected result: processed=%d unmatched=%d updated=%d", got.Processed, len(got.Unmatched), got.UpdatedCount)
	}
}

func TestReconcileService_ConcurrentPassesConverge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewFixtureStore([]fixture.Fixture{
		{ID: "fx-1", CompetitionID: "urc", TeamA: "Leinster", TeamB: "Munster", KickoffAt: testKickoff},
	})
	scraped := []ScrapedResult{{
		RawTeamA:   "Leinster",
		RawTeamB:   "Munster",
		ScoreA:     24,
		ScoreB:     18,
		SourceDate: time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC),
	}}

	const passes = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		updated int
	)
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := newTestReconciler(store).Reconcile(ctx, scraped)
			if err != nil {
				t.Errorf("reconcile: %v", err)
				return
			}
			mu.Lock()
			updated += got.UpdatedCount
			mu.Unlock()
		}()
	}
	wg.Wait()

	if updated != 1 {
		t.Fatalf("exactly one pass must attach the result: got=%d", updated)
	}
}

func TestReconcileService_EmptyInput(t *testing.T) {
	t.Parallel()

	got, err := newTestReconciler(memory.NewFixtureStore(nil)).Reconcile(context.Background(), nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got.Processed != 0 || got.UpdatedFixtureIDs == nil || got.Unmatched == nil {
		t.Fatalf("unexpected empty result: %+v", got)
	}
}
