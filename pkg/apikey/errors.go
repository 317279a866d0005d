package apikey

import "errors"

var (
	// ErrKeyNotFound is returned when no key matches a lookup or a
	// presented secret. Malformed secrets and hash mismatches both
	// collapse to this error so callers cannot distinguish them.
	ErrKeyNotFound = errors.New("api key not found")

	// ErrKeyExpired is returned when a presented secret matches a key
	// past its expiry
	ErrKeyExpired = errors.New("api key has expired")

	// ErrKeyRevoked is returned when a presented secret matches a
	// revoked key
	ErrKeyRevoked = errors.New("api key has been revoked")

	// ErrKeyMalformed is returned when a presented secret does not carry
	// the expected marker or is too short to carry a prefix
	ErrKeyMalformed = errors.New("malformed api key")

	// ErrAlreadyRevoked is returned when revoking a key that is already
	// revoked; revocation is irreversible
	ErrAlreadyRevoked = errors.New("api key already revoked")
)
