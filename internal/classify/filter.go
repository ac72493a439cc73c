package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/rulebook-cli/internal/model"
)

// DefaultExcludeTokens drop citations about same-named events elsewhere.
var DefaultExcludeTokens = []string{"india"}

// DefaultSearchDomain hosts the official league announcements.
const DefaultSearchDomain = "chess.com"

// KeepCitation reports whether a citation URL looks like a source for key:
// it must mention both the year and the season, and none of excludeTokens.
func KeepCitation(rawURL string, key model.Key, excludeTokens []string) bool {
	u := strings.ToLower(rawURL)
	if !strings.Contains(u, strconv.Itoa(key.Year)) {
		return false
	}
	if !strings.Contains(u, strings.ToLower(string(key.Season))) {
		return false
	}
	return !containsAny(u, excludeTokens...)
}

// FilterCitations keeps matching citations in order, dropping duplicates.
func FilterCitations(citations []string, key model.Key, excludeTokens []string) []string {
	seen := make(map[string]bool, len(citations))
	var out []string
	for _, c := range citations {
		if seen[c] || !KeepCitation(c, key, excludeTokens) {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Query builds the search question for key restricted to domain.
func Query(key model.Key, domain string) string {
	if domain == "" {
		domain = DefaultSearchDomain
	}
	return fmt.Sprintf(
		"Find the official Collegiate Chess League %s %d rules document and announcement page, including registration and fair play links. site:%s",
		key.Season.Title(), key.Year, domain,
	)
}
