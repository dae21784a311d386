package secrets

import (
	"errors"
	"fmt"
)

// Sentinel errors for secrets operations, comparable with errors.Is().
var (
	// ErrSecretNotFound indicates the requested secret does not exist in
	// the provider's store.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrInvalidRef indicates a malformed secret reference, such as an
	// empty path.
	ErrInvalidRef = errors.New("invalid secret reference")

	// ErrReadOnly indicates a write operation against a provider that
	// does not support mutation.
	ErrReadOnly = errors.New("provider is read-only")
)

// ProviderError wraps a provider-specific failure with the provider name
// and the reference being accessed. The reference never contains the
// secret value, so ProviderError is safe to log.
type ProviderError struct {
	Provider string
	Ref      SecretRef
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q error for secret %q: %v", e.Provider, e.Ref.Path, e.Err)
}

// Unwrap returns the underlying error for error chain traversal.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err with provider and reference context.
func NewProviderError(provider string, ref SecretRef, err error) *ProviderError {
	return &ProviderError{Provider: provider, Ref: ref, Err: err}
}

// IsProviderError reports whether err has a ProviderError in its chain.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// WrapProviderError wraps a provider error with a message while keeping
// the chain intact for errors.Is and errors.As.
func WrapProviderError(provider string, ref SecretRef, err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, NewProviderError(provider, ref, err))
}
