package teamname

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultCompetitionTokens are the competition labels calendar publishers
// tend to glue onto a team name, e.g. "URC: Leinster".
var DefaultCompetitionTokens = []string{
	"United Rugby Championship",
	"URC",
	"Investec Champions Cup",
	"Champions Cup",
	"EPCR Challenge Cup",
	"Challenge Cup",
	"Guinness Six Nations",
	"Six Nations",
	"6 Nations",
	"Gallagher Premiership",
	"Premiership Rugby",
	"Premiership",
	"Top 14",
	"Super Rugby Pacific",
	"Super Rugby",
	"The Rugby Championship",
	"Rugby Championship",
	"Autumn Nations Series",
	"Autumn Internationals",
	"Rugby World Cup",
	"RWC",
	"Friendly",
}

var placeholderKeys = map[string]struct{}{
	"":        {},
	"tbd":     {},
	"tbc":     {},
	"tba":     {},
	"tbdtbd":  {},
	"unknown": {},
	"na":      {},
	"bye":     {},
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	roundPrefixRe = regexp.MustCompile(`(?i)^(?:round|rd|r|week|wk|matchday|md)\s*\d+\s*[:|\-–—]\s*`)
	decorationRe  = regexp.MustCompile(`(?i)\s*(?:[|\-–—]\s*(?:final|semi[- ]?final|quarter[- ]?final|play[- ]?off|round\s*\d+|rd\s*\d+)|\((?:h|a|n|f|sf|qf|home|away|final)\))$`)
	placeholderRe = regexp.MustCompile(`^(?:winner|loser|runnerup|w|l|ru)(?:of)?(?:qf|sf|semi|quarter|pool|match|game|final)\w*$`)
	mojibakeRe    = regexp.MustCompile("ð[\u0080-¿ŒœŠšŸŽžƒˆ˜–-›€™]{1,3}")
	mojibakeFixes = strings.NewReplacer(
		"Â\u00a0", " ",
		"â€™", "'",
		"â€˜", "'",
		"â€“", "-",
		"â€”", "-",
		"Ã©", "é",
		"Ã¨", "è",
		"Ã¼", "ü",
	)
)

// Normalizer turns raw, publisher-decorated team names into canonical names.
// It is pure once constructed and safe for concurrent use.
type Normalizer struct {
	resolver AliasResolver
	prefixRe *regexp.Regexp
}

type Option func(*Normalizer)

// WithCompetitionTokens replaces the competition labels stripped from the
// start of a name.
func WithCompetitionTokens(tokens []string) Option {
	return func(n *Normalizer) {
		n.prefixRe = buildPrefixRe(tokens)
	}
}

func NewNormalizer(resolver AliasResolver, opts ...Option) *Normalizer {
	if resolver == nil {
		resolver = NewTableResolver(nil)
	}
	n := &Normalizer{
		resolver: resolver,
		prefixRe: buildPrefixRe(DefaultCompetitionTokens),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Normalize cleans raw and maps it through the alias table. Unknown names
// come back cleaned but otherwise untouched.
func (n *Normalizer) Normalize(raw string) string {
	cleaned := n.Clean(raw)
	if cleaned == "" {
		return ""
	}
	if canonical, ok := n.resolver.Resolve(cleaned); ok {
		return canonical
	}
	return cleaned
}

// Clean strips decorative glyphs, competition prefixes and trailing
// decorations without consulting the alias table.
func (n *Normalizer) Clean(raw string) string {
	s := collapse(raw)
	for {
		next := collapse(stripGlyphs(s))
		next = n.prefixRe.ReplaceAllString(next, "")
		next = roundPrefixRe.ReplaceAllString(next, "")
		next = decorationRe.ReplaceAllString(next, "")
		next = collapse(strings.Trim(next, " :|-–—"))
		if next == s {
			return s
		}
		s = next
	}
}

// MatchKey is the strict comparison key: lowercase with every
// non-alphanumeric rune removed. No alias lookup is applied.
func MatchKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsPlaceholder reports whether name stands in for a team that is not yet
// known, such as "TBC" or "Winner QF1".
func IsPlaceholder(name string) bool {
	key := MatchKey(name)
	if _, ok := placeholderKeys[key]; ok {
		return true
	}
	return placeholderRe.MatchString(key)
}

func stripGlyphs(raw string) string {
	s := mojibakeFixes.Replace(raw)
	s = mojibakeRe.ReplaceAllString(s, "")
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == unicode.ReplacementChar:
		case r == '\u00a0', r == '\u202f', r == '\u2007':
			b.WriteRune(' ')
		case r >= 0x1f3fb && r <= 0x1f3ff:
		case unicode.Is(unicode.So, r), unicode.Is(unicode.Me, r), unicode.Is(unicode.Cs, r), unicode.Is(unicode.Co, r):
		case unicode.Is(unicode.Cf, r), unicode.Is(unicode.Mn, r) && r >= 0xfe00 && r <= 0xfe0f:
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func buildPrefixRe(tokens []string) *regexp.Regexp {
	quoted := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(token))
	}
	if len(quoted) == 0 {
		return regexp.MustCompile(`^\b$`)
	}
	alt := strings.Join(quoted, "|")
	return regexp.MustCompile(`(?i)^(?:\[(?:` + alt + `)\]|\((?:` + alt + `)\)|(?:` + alt + `)\s*[:|\-–—])\s*`)
}
