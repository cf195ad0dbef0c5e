package providers

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Rampap-Brasil/postmon/internal/cep"
)

// Provider is one upstream CEP source. Fetch returns the provider's raw
// decoded payload; shaping it into canonical records is the normalizer's
// job, driven by the provider's Mapping. Adding a provider is a fetch
// function plus a mapping, nothing else.
type Provider interface {
	Name() string
	Mapping() cep.Mapping
	Fetch(ctx context.Context, code string) (any, error)
}

// FailureKind classifies a single provider failure. All kinds are
// non-fatal inside the chain; they only matter once the whole list is
// exhausted, when the last one is surfaced to the caller.
type FailureKind string

const (
	FailureTransient  FailureKind = "transient-network"
	FailureUpstream   FailureKind = "upstream-error"
	FailureUnexpected FailureKind = "unexpected"
)

type Error struct {
	Provider string
	Kind     FailureKind
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func Transient(provider string, cause error) *Error {
	return &Error{Provider: provider, Kind: FailureTransient, Cause: cause}
}

func Upstream(provider string, cause error) *Error {
	return &Error{Provider: provider, Kind: FailureUpstream, Cause: cause}
}

func Unexpected(provider string, cause error) *Error {
	return &Error{Provider: provider, Kind: FailureUnexpected, Cause: cause}
}

// Classify wraps an error from the transport layer: timeouts and
// connection failures are transient, anything unrecognized is unexpected.
func Classify(provider string, cause error) *Error {
	if e := (*Error)(nil); errors.As(cause, &e) {
		return e
	}
	var netErr net.Error
	if errors.As(cause, &netErr) ||
		errors.Is(cause, context.DeadlineExceeded) ||
		errors.Is(cause, context.Canceled) {
		return Transient(provider, cause)
	}
	return Unexpected(provider, cause)
}
