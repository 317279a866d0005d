package externalprovider

import "errors"

var (
	// ErrProviderNotFound is returned when the referenced provider does
	// not exist or is filtered out by an enabled-only lookup
	ErrProviderNotFound = errors.New("external provider not found")

	// ErrDuplicateName is returned when a provider with the same name
	// already exists
	ErrDuplicateName = errors.New("provider name already exists")

	// ErrUnknownProviderType is returned when the provider type is not
	// one of the supported kinds
	ErrUnknownProviderType = errors.New("unknown provider type")
)
