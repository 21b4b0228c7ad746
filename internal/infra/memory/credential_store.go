// Package memory provides an in-process credential store, used when no
// Redis instance is configured. Suitable for single-node deployments.
package memory

import (
	"context"
	"sync"

	"quizsolver/internal/domain"
	"quizsolver/internal/usecase/solve"
)

// CredentialStore holds registered email/secret pairs in memory.
type CredentialStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewCredentialStore seeds a store from a map of email to secret.
func NewCredentialStore(seed map[string]string) *CredentialStore {
	secrets := make(map[string]string, len(seed))
	for email, secret := range seed {
		secrets[email] = secret
	}
	return &CredentialStore{secrets: secrets}
}

// Lookup returns the secret registered for email.
func (s *CredentialStore) Lookup(ctx context.Context, email string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secret, ok := s.secrets[email]
	if !ok {
		return "", domain.ErrUnknownEmail
	}
	return secret, nil
}

// Register adds or replaces a credential.
func (s *CredentialStore) Register(ctx context.Context, email, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets[email] = secret
	return nil
}

var _ solve.CredentialStore = (*CredentialStore)(nil)
