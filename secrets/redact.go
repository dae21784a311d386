package secrets

import (
	"strings"
	"sync"
)

// Mask is the replacement text a Redactor substitutes for secret values.
const Mask = "***"

// Redactor masks known secret values in text. Runners register every
// value injected into a step's environment so captured output and logs
// never show the plaintext.
//
// A Redactor is safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	values   []string
	replacer *strings.Replacer
}

// NewRedactor creates a Redactor seeded with the given values.
func NewRedactor(values ...string) *Redactor {
	r := &Redactor{}
	r.Add(values...)
	return r
}

// Add registers values to mask. Empty and very short values are ignored:
// masking one- or two-character strings would mangle ordinary output
// without hiding anything.
func (r *Redactor) Add(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := false
	for _, v := range values {
		if len(v) < 3 {
			continue
		}
		r.values = append(r.values, v)
		added = true
	}
	if added {
		r.replacer = nil
	}
}

// Redact replaces every registered value in s with the mask.
func (r *Redactor) Redact(s string) string {
	r.mu.RLock()
	replacer := r.replacer
	values := r.values
	r.mu.RUnlock()

	if len(values) == 0 || s == "" {
		return s
	}

	if replacer == nil {
		replacer = r.build()
	}
	return replacer.Replace(s)
}

func (r *Redactor) build() *strings.Replacer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.replacer == nil {
		pairs := make([]string, 0, len(r.values)*2)
		for _, v := range r.values {
			pairs = append(pairs, v, Mask)
		}
		r.replacer = strings.NewReplacer(pairs...)
	}
	return r.replacer
}
