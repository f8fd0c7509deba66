package schema

import (
	"fmt"
	"strings"
)

// Longest first so CURRENT TIMESTAMP is not reported as CURRENT TIME.
var defaultMisspellings = [][2]string{
	{"CURRENT TIMESTAMP", "CURRENT_TIMESTAMP"},
	{"CURRENT TIME", "CURRENT_TIME"},
	{"CURRENT DATE", "CURRENT_DATE"},
	{"NOW ()", "NOW()"},
}

var defaultKeywords = map[string]bool{
	"NULL": true, "TRUE": true, "FALSE": true,
	"CURRENT_TIMESTAMP": true, "CURRENT_TIME": true, "CURRENT_DATE": true,
	"LOCALTIMESTAMP": true, "LOCALTIME": true,
}

// ValidateDefaultValue rejects default(...) expressions with common spelling mistakes
// so they fail at registration instead of inside a migration.
func ValidateDefaultValue(defaultVal string) error {
	trimmed := strings.TrimSpace(defaultVal)
	if trimmed == "" {
		return fmt.Errorf("empty DEFAULT value")
	}
	upper := strings.ToUpper(trimmed)

	for _, m := range defaultMisspellings {
		if strings.Contains(upper, m[0]) {
			return fmt.Errorf("invalid DEFAULT value %q: use %s instead of %s", defaultVal, m[1], m[0])
		}
	}

	if defaultKeywords[upper] || isNumeric(trimmed) || strings.HasPrefix(trimmed, "'") {
		return nil
	}
	if strings.EqualFold(trimmed, "now") || strings.EqualFold(trimmed, "gen_random_uuid") {
		return fmt.Errorf("invalid DEFAULT value %q: function call is missing parentheses", defaultVal)
	}
	return nil
}

// isNumeric checks if a string is a valid number
func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, c := range s {
		if i == 0 && (c == '-' || c == '+') {
			continue
		}
		if c == '.' {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
