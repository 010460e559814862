package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/repometa/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// REPOMETA_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set REPOMETA_SECRET_KEY")

// ErrCredentialUnreadable is returned when a stored credential cannot be
// decrypted with the configured key, typically after REPOMETA_SECRET_KEY changed.
var ErrCredentialUnreadable = errors.New("stored credential cannot be decrypted with the configured key")

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the credential for the given service.
	Set(ctx context.Context, service, plaintext string) error

	// Get retrieves the plaintext credential for the given service.
	// Returns ("", nil) if no credential exists for that service.
	Get(ctx context.Context, service string) (string, error)

	// List returns all stored credentials with decrypted values.
	List(ctx context.Context) ([]model.Credential, error)

	// Delete removes the credential for the given service.
	Delete(ctx context.Context, service string) error
}
