package usecase

import (
	"context"
	"time"
)

// ScrapedResult is one completed match read from a score page. Team names
// are raw page text; SourceDate is the page's calendar day in UTC.
type ScrapedResult struct {
	RawTeamA    string    `json:"raw_team_a"`
	RawTeamB    string    `json:"raw_team_b"`
	ScoreA      int       `json:"score_a"`
	ScoreB      int       `json:"score_b"`
	SourceDate  time.Time `json:"source_date"`
	Competition string    `json:"competition,omitempty"`
}

// ScrapeDateOutcome reports how fetching one date's page went.
type ScrapeDateOutcome struct {
	Date      time.Time `json:"date"`
	RowsFound int       `json:"rows_found"`
	Scheme    string    `json:"scheme,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type ScrapeWindow struct {
	Results []ScrapedResult     `json:"results"`
	Dates   []ScrapeDateOutcome `json:"dates"`
}

func (w ScrapeWindow) FailedDates() int {
	count := 0
	for _, item := range w.Dates {
		if item.Error != "" {
			count++
		}
	}
	return count
}

// ResultFetcher reads completed results for a window of days around today.
// A failed date is reported in the window, never as an error.
type ResultFetcher interface {
	FetchWindow(ctx context.Context, daysBack, daysForward int) (ScrapeWindow, error)
}

// CalendarEntry is one VEVENT read from a feed. Err is set when the entry
// could not be read, in which case the other fields are best effort.
type CalendarEntry struct {
	UID      string
	Summary  string
	Location string
	StartAt  time.Time
	Err      error
}

type CalendarParser interface {
	Parse(feedText string) ([]CalendarEntry, error)
}

type CalendarFetcher interface {
	Fetch(ctx context.Context, feedURL string) (string, error)
}
