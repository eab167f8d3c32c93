package calendarfeed

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	crerr "github.com/cockroachdb/errors"
	"github.com/eoinvoconnor/rugby-backend/internal/usecase"
)

const icalDateLayout = "20060102"

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, `,`, `\;`, `;`, `\n`, "\n", `\N`, "\n")

// Parser reads VEVENTs out of iCalendar text.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns one entry per VEVENT. Text that is not a calendar at all is
// an error; an individual event that cannot be read comes back with Err set.
func (p *Parser) Parse(feedText string) ([]usecase.CalendarEntry, error) {
	text := normalizeLineEndings(feedText)
	if !strings.Contains(strings.ToUpper(text), "BEGIN:VCALENDAR") {
		return nil, crerr.New("feed is not an iCalendar document")
	}

	cal, err := ics.ParseCalendar(strings.NewReader(text))
	if err == nil {
		events := cal.Events()
		out := make([]usecase.CalendarEntry, 0, len(events))
		for _, event := range events {
			out = append(out, entryFromEvent(event))
		}
		return out, nil
	}

	// One malformed event fails the whole document, so retry event by event.
	blocks := splitEventBlocks(text)
	if len(blocks) == 0 {
		return nil, crerr.Wrap(err, "parse calendar")
	}
	out := make([]usecase.CalendarEntry, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, parseEventBlock(block))
	}
	return out, nil
}

func parseEventBlock(block string) usecase.CalendarEntry {
	wrapped := "BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//rugby-backend//calendarfeed//EN\n" + block + "\nEND:VCALENDAR\n"
	cal, err := ics.ParseCalendar(strings.NewReader(wrapped))
	if err != nil {
		return usecase.CalendarEntry{
			UID:     blockProperty(block, "UID"),
			Summary: unescapeText(blockProperty(block, "SUMMARY")),
			Err:     crerr.Wrap(err, "parse event"),
		}
	}
	events := cal.Events()
	if len(events) == 0 {
		return usecase.CalendarEntry{Err: crerr.New("event block has no VEVENT")}
	}
	return entryFromEvent(events[0])
}

func entryFromEvent(event *ics.VEvent) usecase.CalendarEntry {
	entry := usecase.CalendarEntry{
		UID:      strings.TrimSpace(event.Id()),
		Summary:  propertyText(event, ics.ComponentPropertySummary),
		Location: propertyText(event, ics.ComponentPropertyLocation),
	}

	startAt, err := eventStart(event)
	if err != nil {
		entry.Err = crerr.Wrap(err, "read DTSTART")
		return entry
	}
	entry.StartAt = startAt.UTC()
	return entry
}

// eventStart reads DTSTART. Date-only values are pinned to midnight UTC so
// the host time zone never shifts the day.
func eventStart(event *ics.VEvent) (time.Time, error) {
	if prop := event.GetProperty(ics.ComponentPropertyDtStart); prop != nil {
		value := strings.TrimSpace(prop.Value)
		if len(value) == len(icalDateLayout) {
			if day, err := time.Parse(icalDateLayout, value); err == nil {
				return day, nil
			}
		}
	}
	startAt, err := event.GetStartAt()
	if err != nil {
		startAt, err = event.GetAllDayStartAt()
	}
	return startAt, err
}

func propertyText(event *ics.VEvent, name ics.ComponentProperty) string {
	prop := event.GetProperty(name)
	if prop == nil {
		return ""
	}
	return strings.TrimSpace(unescapeText(prop.Value))
}

func unescapeText(value string) string {
	return textUnescaper.Replace(value)
}

func normalizeLineEndings(text string) string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func splitEventBlocks(text string) []string {
	lines := strings.Split(text, "\n")
	blocks := make([]string, 0, 16)
	var current []string
	for _, line := range lines {
		upper := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case upper == "BEGIN:VEVENT":
			current = []string{line}
		case upper == "END:VEVENT" && current != nil:
			current = append(current, line)
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		case current != nil:
			current = append(current, line)
		}
	}
	return blocks
}

func blockProperty(block, name string) string {
	prefix := strings.ToUpper(name)
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == prefix || strings.HasPrefix(key, prefix+";") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

var _ usecase.CalendarParser = (*Parser)(nil)
