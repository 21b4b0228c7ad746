// Package redis backs the credential store with Redis so multiple
// service instances share one registration table.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quizsolver/internal/domain"
	"quizsolver/internal/usecase/solve"
)

const credentialKey = "quizd:credentials"

// CredentialStore resolves registered emails against a Redis hash.
// Credentials live under one hash: HSET quizd:credentials {email} {secret}
type CredentialStore struct {
	client *redis.Client
}

// NewCredentialStore wraps an existing Redis client.
func NewCredentialStore(client *redis.Client) *CredentialStore {
	return &CredentialStore{client: client}
}

// Lookup returns the secret registered for email.
func (s *CredentialStore) Lookup(ctx context.Context, email string) (string, error) {
	secret, err := s.client.HGet(ctx, credentialKey, email).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrUnknownEmail
	}
	if err != nil {
		return "", fmt.Errorf("redis lookup: %w", err)
	}
	return secret, nil
}

// Register adds or replaces a credential.
func (s *CredentialStore) Register(ctx context.Context, email, secret string) error {
	if err := s.client.HSet(ctx, credentialKey, email, secret).Err(); err != nil {
		return fmt.Errorf("redis register: %w", err)
	}
	return nil
}

// Seed loads initial credentials without overwriting existing entries.
func (s *CredentialStore) Seed(ctx context.Context, credentials map[string]string) error {
	for email, secret := range credentials {
		if err := s.client.HSetNX(ctx, credentialKey, email, secret).Err(); err != nil {
			return fmt.Errorf("redis seed %s: %w", email, err)
		}
	}
	return nil
}

// Ping verifies connectivity, used at startup.
func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ solve.CredentialStore = (*CredentialStore)(nil)
