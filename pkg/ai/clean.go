package ai

import (
	"regexp"
	"strings"
)

// Model output rarely arrives as bare SQL: it tends to come wrapped in
// markdown fences or prefixed with conversational filler. CleanResponse
// strips that decoration so the classifier sees only the candidate
// statement. Cleaning is cosmetic, never a safety measure; the gate
// validates the result like any other untrusted input.

var (
	fencePattern  = regexp.MustCompile("(?i)```(?:sql|mysql)?\\s*")
	prefixPattern = regexp.MustCompile(`(?i)^\s*(here'?s? (?:is )?the (?:sql )?query:?|the sql query is:?|sql query:?|query:?)\s*`)
)

// CleanResponse extracts the SQL statement from raw model output.
func CleanResponse(raw string) string {
	sql := fencePattern.ReplaceAllString(raw, "")
	sql = prefixPattern.ReplaceAllString(sql, "")
	sql = strings.TrimSpace(sql)

	// When the model appends commentary after the statement, keep only
	// the text through the first terminator.
	if idx := strings.Index(sql, ";"); idx >= 0 {
		sql = sql[:idx+1]
	}
	return strings.TrimSpace(sql)
}
