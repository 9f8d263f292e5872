package enums

import (
	"fmt"
	"strings"
)

// ParseError reports a raw value that does not map to any known variant.
type ParseError struct {
	Kind  string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Kind, e.Value)
}

// lookupKey normalizes raw input before a table lookup.
func lookupKey(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
