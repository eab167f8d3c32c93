package postgres

import (
	"context"
	"fmt"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
	qb "github.com/eoinvoconnor/rugby-backend/internal/platform/querybuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type aliasTableModel struct {
	CanonicalName string         `db:"canonical_name"`
	Aliases       pq.StringArray `db:"aliases"`
}

// AliasRepository reads the operator-maintained team alias table.
type AliasRepository struct {
	db *sqlx.DB
}

func NewAliasRepository(db *sqlx.DB) *AliasRepository {
	return &AliasRepository{db: db}
}

func (r *AliasRepository) LoadAliasTable(ctx context.Context) (teamname.AliasTable, error) {
	query, args, err := qb.Select("canonical_name", "aliases").From("team_aliases").
		Where(qb.IsNull("deleted_at")).
		OrderBy("canonical_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select team aliases query: %w", err)
	}

	var rows []aliasTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select team aliases: %w", err)
	}

	out := make(teamname.AliasTable, len(rows))
	for _, row := range rows {
		out[row.CanonicalName] = append(out[row.CanonicalName], row.Aliases...)
	}
	return out, nil
}

// SaveAliases replaces the alias list of one canonical team.
func (r *AliasRepository) SaveAliases(ctx context.Context, canonicalName string, aliases []string) error {
	query, args, err := qb.InsertInto("team_aliases").
		Columns("canonical_name", "aliases").
		Values(canonicalName, pq.Array(aliases)).
		Suffix(`ON CONFLICT (canonical_name)
DO UPDATE SET
    aliases = EXCLUDED.aliases,
    updated_at = NOW(),
    deleted_at = NULL`).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert team aliases query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert team aliases: %w", err)
	}
	return nil
}
