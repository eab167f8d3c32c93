package file

import (
	"context"
	"strings"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
)

// AliasRepository reads the alias table from a JSON object of
// canonical name to alias list. An empty path yields an empty table.
type AliasRepository struct {
	path string
}

func NewAliasRepository(path string) *AliasRepository {
	return &AliasRepository{path: strings.TrimSpace(path)}
}

func (r *AliasRepository) LoadAliasTable(_ context.Context) (teamname.AliasTable, error) {
	table := make(teamname.AliasTable)
	if r.path == "" {
		return table, nil
	}
	if err := readJSON(r.path, &table); err != nil {
		return nil, err
	}
	return table, nil
}
