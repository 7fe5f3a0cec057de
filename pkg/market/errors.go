package market

import (
	"fmt"
	"strings"
)

// ProviderError describes a single provider failure: timeout, non-2xx status,
// malformed payload or unparseable numeric field.
type ProviderError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err as a failure of the named provider.
func NewProviderError(provider string, err error) *ProviderError {
	if pe, ok := err.(*ProviderError); ok {
		return pe
	}
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return &ProviderError{Provider: provider, Reason: reason, Err: err}
}

// Failf builds a ProviderError from a formatted reason.
func Failf(provider, format string, args ...any) *ProviderError {
	return &ProviderError{Provider: provider, Reason: fmt.Sprintf(format, args...)}
}

// AllProvidersFailedError is returned when every configured provider failed for
// one request. It is the only acquisition error surfaced by the Gateway.
type AllProvidersFailedError struct {
	Label    string
	Failures []*ProviderError
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Failures)+1)
	parts = append(parts, "all providers failed for "+e.Label)
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return strings.Join(parts, " | ")
}
