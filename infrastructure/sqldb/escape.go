package sqldb

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	dangerousChars    = regexp.MustCompile(`[;'"\\()]`)
	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// QuoteIdentifier validates and quotes a table or column name. A
// schema-qualified name is quoted per segment.
func QuoteIdentifier(name string) (string, error) {
	if dangerousChars.MatchString(name) {
		return "", fmt.Errorf("identifier contains dangerous characters: %s", name)
	}
	segments := strings.Split(name, ".")
	if len(segments) > 2 {
		return "", fmt.Errorf("invalid identifier format (too many segments): %s", name)
	}
	for i, segment := range segments {
		if !identifierPattern.MatchString(segment) {
			return "", fmt.Errorf("invalid identifier segment at position %d: %s", i, segment)
		}
		segments[i] = `"` + segment + `"`
	}
	return strings.Join(segments, "."), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern builds a LIKE pattern, escaped with backslash, for a
// contains, startsWith or endsWith operand.
func LikePattern(prefix, value, suffix string) string {
	return prefix + likeEscaper.Replace(value) + suffix
}

var globEscaper = strings.NewReplacer(`*`, `[*]`, `?`, `[?]`, `[`, `[[]`)

// GlobPattern builds a case-sensitive GLOB pattern the same way.
func GlobPattern(prefix, value, suffix string) string {
	return prefix + globEscaper.Replace(value) + suffix
}
