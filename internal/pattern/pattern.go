// Package pattern implements the filter-pattern language workflows use for
// branch and tag filters and for artifact paths.
//
// Pattern semantics:
//
//	*   matches zero or more characters within a path segment (never /)
//	**  matches zero or more of any character, crossing segments
//	?   makes the preceding character optional
//	+   repeats the preceding character one or more times
//	[ ] matches one character from the set
//	!   at the start of a pattern negates it
//
// Patterns in a filter list apply in order with last-match-wins: a
// matching negative pattern after a positive match excludes the name, and
// a later positive match includes it again. A list of only negative
// patterns matches nothing.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Pattern is one compiled filter pattern.
type Pattern struct {
	raw    string
	negate bool
	re     *regexp.Regexp
}

// Compile compiles a single filter pattern.
func Compile(raw string) (*Pattern, error) {
	body := raw
	negate := false
	if strings.HasPrefix(body, "!") {
		negate = true
		body = body[1:]
	}

	expr, err := translate(body)
	if err != nil {
		return nil, fmt.Errorf("invalid filter pattern %q: %w", raw, err)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter pattern %q: %w", raw, err)
	}

	return &Pattern{raw: raw, negate: negate, re: re}, nil
}

// Negated reports whether the pattern starts with "!".
func (p *Pattern) Negated() bool { return p.negate }

// Matches reports whether the pattern body matches the name. Negation
// is the filter list's concern, not the pattern's.
func (p *Pattern) Matches(name string) bool {
	return p.re.MatchString(name)
}

// String returns the raw pattern.
func (p *Pattern) String() string { return p.raw }

// FilterList is an ordered list of compiled patterns.
type FilterList []*Pattern

// CompileFilters compiles each pattern of a filter list.
func CompileFilters(patterns []string) (FilterList, error) {
	list := make(FilterList, 0, len(patterns))
	for _, raw := range patterns {
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

// Matches evaluates the list against a name with last-match-wins
// negation semantics.
func (l FilterList) Matches(name string) bool {
	matched := false
	for _, p := range l {
		if !p.Matches(name) {
			continue
		}
		matched = !p.negate
	}
	return matched
}

// translate converts a filter pattern body to an anchored regular
// expression.
func translate(pattern string) (string, error) {
	var b strings.Builder
	b.WriteString("\\A")

	for i := 0; i < len(pattern); {
		switch c := pattern[i]; c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i += 2
			} else {
				b.WriteString("[^/]*")
				i++
			}
		case '?', '+':
			if i == 0 {
				return "", fmt.Errorf("%q has nothing to repeat", string(c))
			}
			b.WriteByte(c)
			i++
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				return "", fmt.Errorf("unterminated character class")
			}
			b.WriteString(pattern[i : i+end+2])
			i += end + 2
		case '\\':
			if i+1 >= len(pattern) {
				return "", fmt.Errorf("trailing backslash")
			}
			r, size := utf8.DecodeRuneInString(pattern[i+1:])
			b.WriteString(regexp.QuoteMeta(string(r)))
			i += 1 + size
		default:
			r, size := utf8.DecodeRuneInString(pattern[i:])
			b.WriteString(regexp.QuoteMeta(string(r)))
			i += size
		}
	}

	b.WriteString("\\z")
	return b.String(), nil
}
