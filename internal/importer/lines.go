package importer

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	// A mode word in front of the line number, as in "Bus 42" or "STR4".
	modePrefixRe = regexp.MustCompile(`^(?:bus|str|tram|linie)(?:\s+|\s*(\d))`)
	// Long-distance trains are matched by product, not train number.
	longDistanceRe = regexp.MustCompile(`^(ice|ic|ec|en|tgv|rj|rjx|nj|flx)\s*\d+$`)
	// "S 1", "RE 5" and "U 6" are written without the space in OSM.
	spacedLineRe = regexp.MustCompile(`^([a-z]{1,3})\s+(\d+[a-z]?)$`)
)

// NormalizeLine brings a line label into the comparable form used for line
// overlap. It folds diacritics, lowercases and strips mode words.
func NormalizeLine(label string) string {
	s := strings.ToLower(unidecode.Unidecode(label))
	s = strings.Join(strings.Fields(s), " ")
	s = modePrefixRe.ReplaceAllString(s, "$1")
	s = longDistanceRe.ReplaceAllString(s, "$1")
	s = spacedLineRe.ReplaceAllString(s, "$1$2")
	return s
}

// normalizeLines normalizes labels, dropping empties and duplicates while
// keeping the first occurrence order.
func normalizeLines(labels []string) []string {
	var lines []string
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		line := NormalizeLine(label)
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	return lines
}
