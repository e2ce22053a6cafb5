package validation

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a camelCase identifier to snake_case.
// Example: "providerAccountId" -> "provider_account_id"
// Example: "XMLParser" -> "xml_parser"
// Example: "refresh_token" -> "refresh_token"
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevIsLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			prevIsUpper := i > 0 && unicode.IsUpper(runes[i-1])
			nextIsLower := i < len(runes)-1 && unicode.IsLower(runes[i+1])

			if prevIsLower || (prevIsUpper && nextIsLower) {
				result.WriteRune('_')
			}
			result.WriteRune(unicode.ToLower(r))
			continue
		}
		result.WriteRune(r)
	}

	return result.String()
}
