// Package search turns keystrokes into ordered, paginated, cancellable food
// lookups and a consistent result set.
//
// Input flows Normalize -> Debouncer -> Arbiter -> Lookup and back through
// the Arbiter, whose session-id check is what keeps a late response for an
// old query from ever reaching the screen. Coordinator wires the pieces
// together behind a single owner goroutine.
package search

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinQueryLen is the shortest input, in runes, that is worth a lookup.
const MinQueryLen = 3

// ErrInputRejected is the (silent) outcome of input shorter than MinQueryLen.
var ErrInputRejected = errors.New("search: input too short")

// Query is normalized search text. The zero value means "no query".
type Query string

var spaceRun = regexp.MustCompile(`\s+`)

// Normalize trims raw and collapses inner whitespace. Input that ends up
// shorter than MinQueryLen is rejected.
func Normalize(raw string) (Query, error) {
	q := strings.TrimSpace(spaceRun.ReplaceAllString(raw, " "))
	if utf8.RuneCountInString(q) < MinQueryLen {
		return "", ErrInputRejected
	}
	return Query(q), nil
}
