package cache

import (
	"context"
	"sort"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/competition"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
	basecache "github.com/eoinvoconnor/rugby-backend/internal/platform/cache"
)

const (
	aliasTableKey      = "alias:table"
	competitionListKey = "competition:list"
	competitionKeyBase = "competition:id:"
)

// AliasRepository caches the alias table so every run does not reread it
// from the backing store.
type AliasRepository struct {
	next  teamname.Repository
	cache *basecache.Store
}

func NewAliasRepository(next teamname.Repository, cache *basecache.Store) *AliasRepository {
	return &AliasRepository{next: next, cache: cache}
}

func (r *AliasRepository) LoadAliasTable(ctx context.Context) (teamname.AliasTable, error) {
	v, err := r.cache.GetOrLoad(ctx, aliasTableKey, func(ctx context.Context) (any, error) {
		table, err := r.next.LoadAliasTable(ctx)
		if err != nil {
			return nil, err
		}
		return cloneAliasTable(table), nil
	})
	if err != nil {
		return nil, err
	}

	table, _ := v.(teamname.AliasTable)
	return cloneAliasTable(table), nil
}

// Invalidate drops the cached table after an alias edit.
func (r *AliasRepository) Invalidate(ctx context.Context) {
	r.cache.Delete(ctx, aliasTableKey)
}

type CompetitionRepository struct {
	next  competition.Repository
	cache *basecache.Store
}

func NewCompetitionRepository(next competition.Repository, cache *basecache.Store) *CompetitionRepository {
	return &CompetitionRepository{next: next, cache: cache}
}

func (r *CompetitionRepository) List(ctx context.Context) ([]competition.Competition, error) {
	v, err := r.cache.GetOrLoad(ctx, competitionListKey, func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]competition.Competition(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]competition.Competition)
	return append([]competition.Competition(nil), items...), nil
}

func (r *CompetitionRepository) GetByID(ctx context.Context, id string) (competition.Competition, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, competitionKeyBase+id, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return cachedCompetition{value: item, exists: exists}, nil
	})
	if err != nil {
		return competition.Competition{}, false, err
	}

	cached, _ := v.(cachedCompetition)
	return cached.value, cached.exists, nil
}

type cachedCompetition struct {
	value  competition.Competition
	exists bool
}

func cloneAliasTable(table teamname.AliasTable) teamname.AliasTable {
	out := make(teamname.AliasTable, len(table))
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out[name] = append([]string(nil), table[name]...)
	}
	return out
}
