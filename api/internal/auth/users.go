package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/telhawk-systems/fwlens/common/config"
)

// ErrInvalidCredentials covers both unknown users and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is compared against for unknown users.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fwlens-dummy-password"), bcrypt.DefaultCost)

// UserStore holds the static logins from configuration.
type UserStore struct {
	hashes map[string][]byte
}

// NewUserStore validates and indexes users. Every hash must be a bcrypt hash.
func NewUserStore(users []config.UserConfig) (*UserStore, error) {
	s := &UserStore{hashes: make(map[string][]byte, len(users))}
	for _, u := range users {
		if u.Username == "" {
			return nil, errors.New("user with empty username")
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("user %q: invalid bcrypt hash: %w", u.Username, err)
		}
		s.hashes[u.Username] = []byte(u.PasswordHash)
	}
	return s, nil
}

// Len returns the number of configured users.
func (s *UserStore) Len() int {
	return len(s.hashes)
}

// Authenticate checks password for username.
func (s *UserStore) Authenticate(username, password string) error {
	hash, ok := s.hashes[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for auth.users[].password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
