package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// APIToken returns the backend token stored for user. An unknown user or a
// missing secret yields an empty token; the backend then answers anonymously.
func APIToken(user string) (string, error) {
	if user == "" {
		return "", nil
	}

	token, err := keyring.Get(KeyringService, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrTokenLookup, err)
	}
	return token, nil
}

// StoreAPIToken saves token for user in the OS keyring.
func StoreAPIToken(user, token string) error {
	if user == "" {
		return errors.New(ErrAPIUserRequired)
	}
	if err := keyring.Set(KeyringService, user, token); err != nil {
		return fmt.Errorf("%s: %w", ErrTokenStore, err)
	}
	return nil
}
