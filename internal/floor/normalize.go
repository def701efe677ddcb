package floor

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	slashSpacing  = regexp.MustCompile(`\s*/\s*`)
	lowerBasement = regexp.MustCompile(`(^|[^A-Za-z])b(\d)`)

	// A spaced number only belongs to the word when it is a floor on its
	// own ("반지하 2층"). In "반지하 3/5층" it is the current floor of the pair.
	semiBasement = regexp.MustCompile(`반지하(?:\s*(\d+)층|(\d*))`)
	basementWord = regexp.MustCompile(`지하(?:\s*(\d+)층|(\d+))`)
)

// aliases rewrites the spellings listing sites use for the same qualitative marker
var aliases = []struct {
	from string
	to   string
}{
	{"고층/", "고/"},
	{"저층/", "저/"},
	{"중층/", "중/"},
}

// normalize folds full-width forms, tightens the separator and rewrites
// aliases so the floor patterns only need to know one spelling.
func normalize(text string) string {
	s := width.Fold.String(text)
	s = strings.TrimSpace(s)
	s = slashSpacing.ReplaceAllString(s, "/")
	for _, a := range aliases {
		s = strings.ReplaceAll(s, a.from, a.to)
	}
	// semi-basement units are hidden with basements; "반지하" alone means B1
	s = semiBasement.ReplaceAllStringFunc(s, basementMarker(semiBasement, "1"))
	s = lowerBasement.ReplaceAllString(s, "${1}B${2}")
	s = basementWord.ReplaceAllStringFunc(s, basementMarker(basementWord, ""))
	return s
}

// basementMarker rewrites a basement word match to the "B<n>" form
func basementMarker(re *regexp.Regexp, fallback string) func(string) string {
	return func(m string) string {
		sub := re.FindStringSubmatch(m)
		switch {
		case sub[1] != "":
			return "B" + sub[1] + "층"
		case sub[2] != "":
			return "B" + sub[2]
		}
		return "B" + fallback
	}
}
