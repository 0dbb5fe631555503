package logwatch

import (
	"regexp"
	"strings"
)

// SessionInvalidated is the typed event emitted when a log line
// signals that the bot's own session has been invalidated
type SessionInvalidated struct {
	Identifier string
	Line       string
}

// Fixed pattern set for authentication/session failures. String
// matching is a best-effort stand-in for a structured health signal:
// false positives are accepted over missing a true logout.
var sessionFailurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)invalid\s+session`),
	regexp.MustCompile(`(?i)session\s+invalid`),
	regexp.MustCompile(`(?i)logged\s*out`),
	regexp.MustCompile(`(?i)401\s+unauthorized`),
}

var forIdentifierPattern = regexp.MustCompile(`for (\S+)\.`)
var bracketPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// Classify tests one output line against the session-failure patterns
// and, on a match, extracts a best-effort session identifier: the
// first `for <id>.` capture, else the last bracketed token before the
// word "invalid", else empty.
func Classify(line string) (*SessionInvalidated, bool) {
	matched := false
	for _, p := range sessionFailurePatterns {
		if p.MatchString(line) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, false
	}

	return &SessionInvalidated{
		Identifier: extractIdentifier(line),
		Line:       line,
	}, true
}

func extractIdentifier(line string) string {
	if m := forIdentifierPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}

	if idx := strings.Index(strings.ToLower(line), "invalid"); idx >= 0 {
		brackets := bracketPattern.FindAllStringSubmatch(line[:idx], -1)
		if len(brackets) > 0 {
			return brackets[len(brackets)-1][1]
		}
	}

	return ""
}
