package registry

import "errors"

var (
	// ErrProviderNotFound is returned when an operation names an identity the
	// registry holds no configuration for.
	ErrProviderNotFound = errors.New("provider not found")
	// ErrInvalidIdentity is returned for empty or whitespace-only identities.
	ErrInvalidIdentity = errors.New("invalid provider identity")
	// ErrUnknownCapability is returned for capabilities outside the closed set.
	ErrUnknownCapability = errors.New("unknown capability")
	// ErrNoConstructor is returned when a registration carries a nil constructor.
	ErrNoConstructor = errors.New("constructor is required")
)
