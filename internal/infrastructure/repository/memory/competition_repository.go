package memory

import (
	"context"
	"sync"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/competition"
)

type CompetitionRepository struct {
	mu           sync.RWMutex
	competitions []competition.Competition
}

func NewCompetitionRepository(items []competition.Competition) *CompetitionRepository {
	out := make([]competition.Competition, 0, len(items))
	out = append(out, items...)
	return &CompetitionRepository{competitions: out}
}

func (r *CompetitionRepository) List(_ context.Context) ([]competition.Competition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]competition.Competition, 0, len(r.competitions))
	out = append(out, r.competitions...)
	return out, nil
}

func (r *CompetitionRepository) GetByID(_ context.Context, id string) (competition.Competition, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.competitions {
		if item.ID == id {
			return item, true, nil
		}
	}
	return competition.Competition{}, false, nil
}
