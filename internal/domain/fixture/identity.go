package fixture

import (
	"strings"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
)

// DefaultDedupTolerance is how far apart two kickoffs may be while still
// describing the same fixture. Calendar publishers shift kickoffs by hours,
// never by days.
const DefaultDedupTolerance = 48 * time.Hour

// PairKey identifies the pairing of two teams regardless of which side each
// one was listed on.
func PairKey(teamA, teamB string) string {
	a := teamname.MatchKey(teamA)
	b := teamname.MatchKey(teamB)
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func (f Fixture) PairKey() string {
	return PairKey(f.TeamA, f.TeamB)
}

// FindIdentityMatch returns the index of the fixture in existing that shares
// the candidate's identity: same competition, same unordered team pair and a
// kickoff within tolerance. The nearest kickoff wins.
func FindIdentityMatch(existing []Fixture, candidate Fixture, tolerance time.Duration) (int, bool) {
	if tolerance <= 0 {
		tolerance = DefaultDedupTolerance
	}
	key := candidate.PairKey()
	best := -1
	var bestDelta time.Duration
	for i, item := range existing {
		if !strings.EqualFold(item.CompetitionID, candidate.CompetitionID) {
			continue
		}
		if item.PairKey() != key {
			continue
		}
		delta := absDuration(item.KickoffAt.Sub(candidate.KickoffAt))
		if delta >= tolerance {
			continue
		}
		if best < 0 || delta < bestDelta {
			best = i
			bestDelta = delta
		}
	}
	return best, best >= 0
}

// Merge folds candidate into existing. Only schedule details of a fixture
// still awaiting its result are refreshed: the result and the team identity
// of existing are never touched. The second return value reports whether
// anything changed.
func Merge(existing, candidate Fixture, now time.Time) (Fixture, bool) {
	if existing.HasResult() {
		return existing, false
	}
	changed := false
	if !candidate.KickoffAt.IsZero() && !existing.KickoffAt.Equal(candidate.KickoffAt) {
		existing.KickoffAt = candidate.KickoffAt
		changed = true
	}
	if candidate.Venue != "" && existing.Venue != candidate.Venue {
		existing.Venue = candidate.Venue
		changed = true
	}
	if existing.SourceUID == "" && candidate.SourceUID != "" {
		existing.SourceUID = candidate.SourceUID
		changed = true
	}
	if changed {
		existing.UpdatedAt = now
	}
	return existing, changed
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
