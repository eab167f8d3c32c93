package competition

import "testing"

func TestNormalizeFeedURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"webcal://example.com/urc.ics":   "https://example.com/urc.ics",
		"WEBCAL://example.com/urc.ics":   "https://example.com/urc.ics",
		"webcals://example.com/urc.ics":  "https://example.com/urc.ics",
		" https://example.com/urc.ics ": "https://example.com/urc.ics",
		"http://example.com/urc.ics":     "http://example.com/urc.ics",
	}
	for in, want := range cases {
		if got := NormalizeFeedURL(in); got != want {
			t.Fatalf("normalize %q: got=%q want=%q", in, got, want)
		}
	}
}
