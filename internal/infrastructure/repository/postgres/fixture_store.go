package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/id"
	qb "github.com/eoinvoconnor/rugby-backend/internal/platform/querybuilder"
	"github.com/jmoiron/sqlx"
)

// FixtureStore keeps fixtures in Postgres. Upserts for one team pairing are
// serialized with a transaction-scoped advisory lock because identity matching
// uses a kickoff tolerance that no unique index can express.
type FixtureStore struct {
	db        *sqlx.DB
	ids       id.Generator
	tolerance time.Duration
}

func NewFixtureStore(db *sqlx.DB, tolerance time.Duration) *FixtureStore {
	if tolerance <= 0 {
		tolerance = fixture.DefaultDedupTolerance
	}
	return &FixtureStore{
		db:        db,
		ids:       id.NewPrefixedGenerator("fx"),
		tolerance: tolerance,
	}
}

func (s *FixtureStore) Upsert(ctx context.Context, candidate fixture.Fixture) (fixture.UpsertResult, error) {
	if err := candidate.Validate(); err != nil {
		return fixture.UpsertResult{}, err
	}
	candidate.KickoffAt = candidate.KickoffAt.UTC()
	pairKey := candidate.PairKey()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fixture.UpsertResult{}, fmt.Errorf("begin tx upsert fixture: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", candidate.CompetitionID+"|"+pairKey); err != nil {
		return fixture.UpsertResult{}, fmt.Errorf("lock fixture identity: %w", err)
	}

	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.Eq("competition_id", candidate.CompetitionID),
			qb.Eq("pair_key", pairKey),
			qb.Between("kickoff_at", candidate.KickoffAt.Add(-s.tolerance), candidate.KickoffAt.Add(s.tolerance)),
			qb.IsNull("deleted_at"),
		).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return fixture.UpsertResult{}, fmt.Errorf("build select fixture identity query: %w", err)
	}
	var rows []fixtureTableModel
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return fixture.UpsertResult{}, fmt.Errorf("select fixture identity: %w", err)
	}

	existing := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		existing = append(existing, row.toDomain())
	}

	var out fixture.UpsertResult
	if idx, ok := fixture.FindIdentityMatch(existing, candidate, s.tolerance); ok {
		prev := existing[idx]
		merged, changed := fixture.Merge(prev, candidate, time.Now().UTC())
		if changed {
			updateQuery, updateArgs, err := qb.Update("fixtures").
				Set("kickoff_at", merged.KickoffAt).
				Set("venue", merged.Venue).
				Set("source_uid", merged.SourceUID).
				SetExpr("updated_at", "NOW()").
				Where(qb.Eq("public_id", merged.ID), qb.IsNull("deleted_at")).
				ToSQL()
			if err != nil {
				return fixture.UpsertResult{}, fmt.Errorf("build merge fixture query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
				return fixture.UpsertResult{}, fmt.Errorf("merge fixture: %w", err)
			}
		}
		out = fixture.UpsertResult{Outcome: fixture.OutcomeFor(prev, merged), Fixture: merged, Changed: changed}
	} else {
		publicID, err := s.ids.NewID()
		if err != nil {
			return fixture.UpsertResult{}, fmt.Errorf("generate fixture id: %w", err)
		}
		insert := fixtureInsertModel{
			PublicID:      publicID,
			CompetitionID: candidate.CompetitionID,
			TeamA:         candidate.TeamA,
			TeamB:         candidate.TeamB,
			PairKey:       pairKey,
			KickoffAt:     candidate.KickoffAt,
			Venue:         candidate.Venue,
			SourceUID:     candidate.SourceUID,
		}
		insertQuery, insertArgs, err := qb.InsertModel("fixtures", insert, "RETURNING *")
		if err != nil {
			return fixture.UpsertResult{}, fmt.Errorf("build insert fixture query: %w", err)
		}
		var row fixtureTableModel
		if err := tx.GetContext(ctx, &row, insertQuery, insertArgs...); err != nil {
			return fixture.UpsertResult{}, fmt.Errorf("insert fixture: %w", err)
		}
		out = fixture.UpsertResult{Outcome: fixture.UpsertCreated, Fixture: row.toDomain(), Changed: true}
	}

	if err := tx.Commit(); err != nil {
		return fixture.UpsertResult{}, fmt.Errorf("commit upsert fixture tx: %w", err)
	}
	return out, nil
}

// AttachResult writes the result only while none is stored. The conditional
// update is the concurrency control: of two racing writers exactly one sees a
// returned row.
func (s *FixtureStore) AttachResult(ctx context.Context, fixtureID string, result fixture.Result) (fixture.Fixture, error) {
	current, ok, err := s.GetByID(ctx, fixtureID)
	if err != nil {
		return fixture.Fixture{}, err
	}
	if !ok {
		return fixture.Fixture{}, fmt.Errorf("%w: id=%s", fixture.ErrNotFound, fixtureID)
	}
	if current.HasResult() {
		return current, fixture.ErrAlreadyResolved
	}
	if err := result.Validate(current.TeamA, current.TeamB); err != nil {
		return fixture.Fixture{}, err
	}

	query, args, err := resultUpdate(fixtureID, result).
		Where(qb.IsNull("result_margin")).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, fmt.Errorf("build attach result query: %w", err)
	}

	var row fixtureTableModel
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			latest, _, getErr := s.GetByID(ctx, fixtureID)
			if getErr != nil {
				return fixture.Fixture{}, getErr
			}
			return latest, fixture.ErrAlreadyResolved
		}
		return fixture.Fixture{}, fmt.Errorf("attach fixture result: %w", err)
	}
	return row.toDomain(), nil
}

func (s *FixtureStore) OverrideResult(ctx context.Context, fixtureID string, result fixture.Result) (fixture.Fixture, error) {
	current, ok, err := s.GetByID(ctx, fixtureID)
	if err != nil {
		return fixture.Fixture{}, err
	}
	if !ok {
		return fixture.Fixture{}, fmt.Errorf("%w: id=%s", fixture.ErrNotFound, fixtureID)
	}
	if err := result.Validate(current.TeamA, current.TeamB); err != nil {
		return fixture.Fixture{}, err
	}

	query, args, err := resultUpdate(fixtureID, result).Suffix("RETURNING *").ToSQL()
	if err != nil {
		return fixture.Fixture{}, fmt.Errorf("build override result query: %w", err)
	}
	var row fixtureTableModel
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return fixture.Fixture{}, fmt.Errorf("override fixture result: %w", err)
	}
	return row.toDomain(), nil
}

func (s *FixtureStore) MarkScored(ctx context.Context, fixtureID string, at time.Time) error {
	query, args, err := qb.Update("fixtures").
		Set("scored_at", at.UTC()).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", fixtureID),
			qb.IsNotNull("result_margin"),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark scored query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark fixture scored: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark fixture scored rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, ok, err := s.GetByID(ctx, fixtureID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: id=%s", fixture.ErrNotFound, fixtureID)
	}
	return fmt.Errorf("%w: fixture %s has no result to score", fixture.ErrInvalidFixture, fixtureID)
}

func (s *FixtureStore) GetByID(ctx context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.Eq("public_id", fixtureID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build get fixture query: %w", err)
	}

	var row fixtureTableModel
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("get fixture: %w", err)
	}
	return row.toDomain(), true, nil
}

func (s *FixtureStore) ListAll(ctx context.Context) ([]fixture.Fixture, error) {
	return s.list(ctx, "list fixtures", qb.IsNull("deleted_at"))
}

func (s *FixtureStore) ListByCompetition(ctx context.Context, competitionID string) ([]fixture.Fixture, error) {
	return s.list(ctx, "list fixtures by competition",
		qb.Eq("competition_id", competitionID),
		qb.IsNull("deleted_at"),
	)
}

func (s *FixtureStore) ListKickoffBetween(ctx context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	return s.list(ctx, "list fixtures by kickoff window",
		qb.Between("kickoff_at", from.UTC(), to.UTC()),
		qb.IsNull("deleted_at"),
	)
}

func (s *FixtureStore) list(ctx context.Context, op string, conditions ...qb.Condition) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(conditions...).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []fixtureTableModel
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func resultUpdate(fixtureID string, result fixture.Result) *qb.UpdateBuilder {
	return qb.Update("fixtures").
		Set("result_winner", result.Winner).
		Set("result_margin", result.Margin).
		Set("score_a", result.ScoreA).
		Set("score_b", result.ScoreB).
		SetExpr("result_at", "NOW()").
		SetExpr("scored_at", "NULL").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", fixtureID),
			qb.IsNull("deleted_at"),
		)
}
