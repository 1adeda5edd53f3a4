/*
Package auth provides the login gate in front of the ledger.

PURPOSE:
  Checks a user name and password against the credentials held by the
  active store. Passwords are kept only as bcrypt hashes.

DEFAULT CREDENTIAL:
  A store without any credential rows still has to be usable after
  install, so the gate falls back to admin / 1234. That hash is computed
  at start-up and is never written to the store.

SEE ALSO:
  - store/sqlstore: credentials table
  - store/filestore: credentials section of the YAML document
  - api/server.go: Basic auth middleware built on Gate
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultUser     = "admin"
	DefaultPassword = "1234"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid user or password")
	ErrEmptyPassword      = errors.New("auth: password must not be empty")
)

// Credential is one stored login.
type Credential struct {
	User         string `json:"user" yaml:"user"`
	PasswordHash string `json:"-" yaml:"password_hash"`
}

// CredentialSource is implemented by stores that keep credentials.
type CredentialSource interface {
	LoadCredentials(ctx context.Context) ([]Credential, error)
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Gate verifies logins.
type Gate struct {
	hashes map[string][]byte
	// dummy is compared against for unknown users so that both paths
	// cost one bcrypt comparison.
	dummy  []byte
	logger *slog.Logger
}

// NewGate loads credentials from src. A nil source or an empty credential
// list yields the default admin login.
func NewGate(ctx context.Context, src CredentialSource, logger *slog.Logger) (*Gate, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var creds []Credential
	if src != nil {
		loaded, err := src.LoadCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("load credentials: %w", err)
		}
		creds = loaded
	}

	g := &Gate{hashes: make(map[string][]byte), logger: logger}
	for _, c := range creds {
		user := strings.TrimSpace(c.User)
		if user == "" || c.PasswordHash == "" {
			continue
		}
		g.hashes[user] = []byte(c.PasswordHash)
	}

	dummy, err := HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}
	g.dummy = []byte(dummy)

	if len(g.hashes) == 0 {
		g.hashes[DefaultUser] = g.dummy
		logger.Warn("no stored credentials, using default login", slog.String("user", DefaultUser))
	}
	return g, nil
}

// Authenticate returns nil if password matches the stored hash for user.
func (g *Gate) Authenticate(user, password string) error {
	hash, ok := g.hashes[strings.TrimSpace(user)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(g.dummy, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Users lists the accepted user names.
func (g *Gate) Users() []string {
	users := make([]string, 0, len(g.hashes))
	for u := range g.hashes {
		users = append(users, u)
	}
	return users
}
