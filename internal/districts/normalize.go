package districts

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Administrative-unit words removed before keyword matching. Longer phrases
// come first so "муниципальный район" is not cut down to "муниципальный".
var adminSuffixes = [][]string{
	{"муниципальное", "образование"},
	{"муниципальный", "район"},
	{"городской", "округ"},
	{"район"},
}

// fold lowercases s with Russian casing rules after NFC composition, so a
// decomposed "й" from the geocoder compares equal to the registry's.
// Whitespace runs collapse to a single space.
func fold(s string) string {
	s = norm.NFC.String(s)
	s = cases.Lower(language.Russian).String(s)
	return strings.Join(strings.Fields(s), " ")
}

func stripAdminSuffixes(s string) string {
	words := strings.Fields(s)
	kept := words[:0]
	for i := 0; i < len(words); {
		if n := matchSuffix(words[i:]); n > 0 {
			i += n
			continue
		}
		kept = append(kept, words[i])
		i++
	}
	return strings.Join(kept, " ")
}

func matchSuffix(words []string) int {
	for _, phrase := range adminSuffixes {
		if len(words) < len(phrase) {
			continue
		}
		match := true
		for j, w := range phrase {
			if words[j] != w {
				match = false
				break
			}
		}
		if match {
			return len(phrase)
		}
	}
	return 0
}

// Normalize maps a raw administrative area (Nominatim's "county") to a
// canonical district name, or None. Matching is by substring: "леваши"
// matches inside "левашинский".
func (r *Registry) Normalize(raw string) string {
	s := fold(raw)
	if s == "" {
		return None
	}
	s = stripAdminSuffixes(s)

	if strings.Contains(s, izberbashKeyword) {
		return Izberbash
	}
	for _, rl := range r.rules {
		if strings.Contains(s, rl.keyword) {
			return rl.district
		}
	}
	return None
}

// Normalize uses the embedded registry.
func Normalize(raw string) string { return Default.Normalize(raw) }
