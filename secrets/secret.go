// Package secrets provides provider-agnostic secrets management for
// workflow runs, with automatic memory cleanup and just-in-time
// resolution.
//
// A Manager holds a registry of named providers and resolves SecretRefs
// through them. Providers back secrets with different stores: the memory
// provider for tests, the envfile provider for sealed environment files.
// Resolved values can auto-clear after first use, and a Redactor masks
// resolved values in captured step output.
package secrets

import "time"

// Secret represents a resolved secret value with metadata.
// The value is never logged by this package.
type Secret struct {
	// Value contains the secret data as bytes.
	Value []byte
	// Version indicates which version of the secret this is.
	Version string
	// CreatedAt records when this secret was stored.
	CreatedAt time.Time
	// AutoClear controls whether accessors clear the value after use.
	AutoClear bool
}

// SecretRef references a secret without containing its value.
// Refs are safe to log and to embed in workflow definitions.
type SecretRef struct {
	// Path identifies the secret (e.g. "DB_PASSWORD", "api/token").
	Path string
	// Version selects a specific version (empty for latest).
	Version string
	// Metadata carries provider-specific hints.
	Metadata map[string]string
}

// String returns the secret value as a string.
// If AutoClear is enabled, the value is cleared after use.
func (s *Secret) String() string {
	if s.Value == nil {
		return ""
	}

	value := string(s.Value)
	if s.AutoClear {
		s.Clear()
	}
	return value
}

// Bytes returns a copy of the secret value so callers cannot mutate the
// stored bytes. If AutoClear is enabled, the value is cleared after use.
func (s *Secret) Bytes() []byte {
	if s.Value == nil {
		return nil
	}

	value := make([]byte, len(s.Value))
	copy(value, s.Value)

	if s.AutoClear {
		s.Clear()
	}
	return value
}

// Clear zeros the secret value in memory.
func (s *Secret) Clear() {
	if s.Value == nil {
		return
	}
	for i := range s.Value {
		s.Value[i] = 0
	}
	s.Value = nil
}
