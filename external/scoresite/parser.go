package scoresite

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/eoinvoconnor/rugby-backend/internal/usecase"
)

// SelectorScheme describes one way the results page lays out a finished
// match. Schemes are tried in order until one yields rows.
type SelectorScheme struct {
	Name        string
	Row         string
	TeamNames   string
	HomeScore   string
	AwayScore   string
	Competition string
}

// DefaultSchemes lists the current results markup first and the older
// fixture-block markup as fallback.
var DefaultSchemes = []SelectorScheme{
	{
		Name:        "head-to-head",
		Row:         `[class*="HeadToHeadWrapper"]`,
		TeamNames:   `[class*="DesktopValue"]`,
		HomeScore:   `[class*="HomeScore"]`,
		AwayScore:   `[class*="AwayScore"]`,
		Competition: `[class*="GroupHeader"], h2, h3`,
	},
	{
		Name:        "fixture-block",
		Row:         `.sp-c-fixture`,
		TeamNames:   `.sp-c-fixture__team-name-trunc`,
		HomeScore:   `.sp-c-fixture__number--home.sp-c-fixture__number--ft`,
		AwayScore:   `.sp-c-fixture__number--away.sp-c-fixture__number--ft`,
		Competition: `.gel-minion, h3`,
	},
}

// ParsePage extracts finished matches from a results page. A scheme whose
// rows produce no finished match does not stop the search, since the inner
// markup may have drifted while the wrapper survived. When no scheme yields
// a match the returned name is the first scheme whose rows were present, or
// empty when none were.
func ParsePage(r io.Reader, date time.Time, schemes []SelectorScheme) ([]usecase.ScrapedResult, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, "", err
	}
	if len(schemes) == 0 {
		schemes = DefaultSchemes
	}

	var seen string
	for _, scheme := range schemes {
		rows := doc.Find(scheme.Row)
		if rows.Length() == 0 {
			continue
		}
		if seen == "" {
			seen = scheme.Name
		}
		out := make([]usecase.ScrapedResult, 0, rows.Length())
		rows.Each(func(_ int, row *goquery.Selection) {
			item, ok := parseRow(row, scheme, date)
			if ok {
				out = append(out, item)
			}
		})
		if len(out) > 0 {
			return out, scheme.Name, nil
		}
	}
	return []usecase.ScrapedResult{}, seen, nil
}

func parseRow(row *goquery.Selection, scheme SelectorScheme, date time.Time) (usecase.ScrapedResult, bool) {
	names := make([]string, 0, 2)
	row.Find(scheme.TeamNames).Each(func(_ int, s *goquery.Selection) {
		if name := cleanText(s.Text()); name != "" {
			names = append(names, name)
		}
	})
	if len(names) < 2 {
		return usecase.ScrapedResult{}, false
	}

	// Unplayed fixtures render a kickoff time or nothing in the score slots.
	scoreA, okA := parseScore(row.Find(scheme.HomeScore).First().Text())
	scoreB, okB := parseScore(row.Find(scheme.AwayScore).First().Text())
	if !okA || !okB {
		return usecase.ScrapedResult{}, false
	}

	var label string
	if scheme.Competition != "" {
		if section := row.Closest("section"); section.Length() > 0 {
			label = cleanText(section.Find(scheme.Competition).First().Text())
		}
	}

	y, m, d := date.UTC().Date()
	return usecase.ScrapedResult{
		RawTeamA:    names[0],
		RawTeamB:    names[1],
		ScoreA:      scoreA,
		ScoreB:      scoreB,
		SourceDate:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Competition: label,
	}, true
}

func parseScore(raw string) (int, bool) {
	value := cleanText(raw)
	if value == "" {
		return 0, false
	}
	score, err := strconv.Atoi(value)
	if err != nil || score < 0 {
		return 0, false
	}
	return score, true
}

func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
