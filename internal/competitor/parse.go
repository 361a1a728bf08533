package competitor

import (
	"regexp"
	"strings"
)

// MaxParsedNames caps how many competitor names a single free-text answer
// can yield; everything beyond it is noise, not signal.
const MaxParsedNames = 20

var (
	// Hard separators between list items.
	separatorRe = regexp.MustCompile(`[,;\n]+`)
	// Soft connectors inside a fragment: " and ", " vs ", " vs. ", " / ".
	connectorRe = regexp.MustCompile(`(?i)\s+and\s+|\s+vs\.?\s+|\s+/\s+`)
	// Leading numbered-list markers like "1. " or "2) ".
	listMarkerRe = regexp.MustCompile(`^\s*\d+\s*[.)]\s*`)
)

// ParseCompetitorNames extracts competitor names from a free-text answer.
// Splits on commas, semicolons, newlines, "and", "vs"/"vs." and slashes,
// strips numbered-list markers, and deduplicates case-insensitively while
// keeping first-seen casing. Parenthetical qualifiers survive verbatim:
// "Bizible (Marketo)" stays one name.
func ParseCompetitorNames(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, chunk := range separatorRe.Split(text, -1) {
		for _, frag := range connectorRe.Split(chunk, -1) {
			name := strings.TrimSpace(listMarkerRe.ReplaceAllString(frag, ""))
			name = strings.Trim(name, "-•* \t")
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, name)
			if len(out) >= MaxParsedNames {
				return out
			}
		}
	}
	return out
}
