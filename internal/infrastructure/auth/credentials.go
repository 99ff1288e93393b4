package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/magpieiq/backend/internal/infrastructure/config"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any email or password mismatch
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialChecker verifies the single configured dashboard credential.
// The password is compared against a bcrypt hash.
type CredentialChecker struct {
	email        string
	passwordHash []byte
}

// NewCredentialChecker uses cfg.PasswordHash when set and otherwise hashes
// cfg.Password once.
func NewCredentialChecker(cfg config.AuthConfig) (*CredentialChecker, error) {
	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		if cfg.Password == "" {
			return nil, errors.New("auth: either password_hash or password must be set")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("auth: invalid password_hash: %w", err)
	}

	return &CredentialChecker{
		email:        strings.ToLower(strings.TrimSpace(cfg.Email)),
		passwordHash: hash,
	}, nil
}

// Check returns ErrInvalidCredentials unless both email and password match.
// The bcrypt comparison runs even on an email mismatch.
func (c *CredentialChecker) Check(email, password string) error {
	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(email))),
		[]byte(c.email),
	) == 1
	passwordErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))
	if !emailOK || passwordErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}
