package memory

import (
	"context"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
)

type AliasRepository struct {
	table teamname.AliasTable
}

func NewAliasRepository(table teamname.AliasTable) *AliasRepository {
	return &AliasRepository{table: table}
}

func (r *AliasRepository) LoadAliasTable(_ context.Context) (teamname.AliasTable, error) {
	out := make(teamname.AliasTable, len(r.table))
	for name, aliases := range r.table {
		out[name] = append([]string(nil), aliases...)
	}
	return out, nil
}
