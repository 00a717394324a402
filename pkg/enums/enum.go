package enums

import (
	"fmt"
	"slices"
	"strings"
)

// oneOf reports whether v is among the declared values of its enum.
func oneOf[T ~string](v T, declared []T) bool {
	return slices.Contains(declared, v)
}

// parse matches raw input against the declared values, ignoring case and
// surrounding whitespace, and returns the canonical spelling.
func parse[T ~string](kind, raw string, declared []T) (T, error) {
	value := strings.TrimSpace(raw)
	for _, candidate := range declared {
		if strings.EqualFold(string(candidate), value) {
			return candidate, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
