package competition

import (
	"context"
	"strings"
)

// Competition is a tournament whose fixtures are published as an iCalendar
// feed.
type Competition struct {
	ID      string
	Name    string
	Color   string
	FeedURL string
}

type Repository interface {
	List(ctx context.Context) ([]Competition, error)
	GetByID(ctx context.Context, id string) (Competition, bool, error)
}

// NormalizeFeedURL rewrites webcal:// subscription links to https:// so they
// can be fetched over plain HTTP.
func NormalizeFeedURL(raw string) string {
	value := strings.TrimSpace(raw)
	lower := strings.ToLower(value)
	switch {
	case strings.HasPrefix(lower, "webcals://"):
		return "https://" + value[len("webcals://"):]
	case strings.HasPrefix(lower, "webcal://"):
		return "https://" + value[len("webcal://"):]
	default:
		return value
	}
}
