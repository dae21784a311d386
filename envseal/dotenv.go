package envseal

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/sluiceworks/sluice/fs"
)

// Var is a single KEY=VALUE entry from an environment file.
type Var struct {
	Key   string
	Value string
}

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseEnv parses dotenv-formatted content into an ordered list of
// variables. The grammar is deliberately small: blank lines and lines
// starting with '#' are skipped, an optional "export " prefix is allowed,
// values may be single- or double-quoted, and unquoted values have
// trailing comments stripped. Values are never expanded.
func ParseEnv(data []byte) ([]Var, error) {
	var vars []Var

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, rest, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing '='", ErrMalformedEnv, lineno)
		}

		key = strings.TrimSpace(key)
		if !keyPattern.MatchString(key) {
			return nil, fmt.Errorf("%w: line %d: invalid key %q", ErrMalformedEnv, lineno, key)
		}

		value, err := parseValue(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedEnv, lineno, err)
		}

		vars = append(vars, Var{Key: key, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnv, err)
	}
	return vars, nil
}

// OpenEnvFile unseals the envelope at path and parses the plaintext as a
// dotenv file.
func OpenEnvFile(fsys fs.Filesystem, path string, key []byte) ([]Var, error) {
	plaintext, err := DecryptFileBytes(fsys, path, key)
	if err != nil {
		return nil, err
	}
	return ParseEnv(plaintext)
}

func parseValue(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}

	switch raw[0] {
	case '\'':
		if len(raw) < 2 || !strings.HasSuffix(raw, "'") {
			return "", fmt.Errorf("unterminated single-quoted value")
		}
		return raw[1 : len(raw)-1], nil
	case '"':
		if len(raw) < 2 || !strings.HasSuffix(raw, `"`) {
			return "", fmt.Errorf("unterminated double-quoted value")
		}
		return unescape(raw[1 : len(raw)-1]), nil
	default:
		// Unquoted values run to an inline comment, if any.
		if idx := strings.Index(raw, " #"); idx >= 0 {
			raw = raw[:idx]
		}
		return strings.TrimSpace(raw), nil
	}
}

func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
