package string

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts CamelCase identifiers to snake_case ("TargetPhone" -> "target_phone").
func ToSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Mask hides all but the last keep runes of v, e.g. Mask("+15551234567", 4) = "********4567".
// Used to keep contact values out of logs.
func Mask(v string, keep int) string {
	runes := []rune(v)
	if len(runes) <= keep {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-keep) + string(runes[len(runes)-keep:])
}
