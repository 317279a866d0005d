package oauth2client

import "errors"

var (
	// ErrClientNotFound is returned when the referenced client does not exist
	ErrClientNotFound = errors.New("client not found")

	// ErrDuplicateClientID is returned when a client with the same
	// clientId already exists
	ErrDuplicateClientID = errors.New("client id already exists")

	// ErrInvalidRedirectURI is returned when a redirect or post-logout
	// redirect URI fails policy validation
	ErrInvalidRedirectURI = errors.New("invalid redirect URI")

	// ErrMissingSecret is returned when a confidential client is created
	// or left without a secret
	ErrMissingSecret = errors.New("confidential client requires a secret")

	// ErrEmptyScopes is returned when a client would end up with no scopes
	ErrEmptyScopes = errors.New("client scopes must not be empty")

	// ErrInvalidClientType is returned when the client type is neither
	// public nor confidential
	ErrInvalidClientType = errors.New("invalid client type")

	// ErrInvalidCredentials is returned when client secret verification fails
	ErrInvalidCredentials = errors.New("invalid client credentials")
)
