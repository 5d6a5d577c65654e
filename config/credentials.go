package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Credentials is the broker keys file: an auth section with app keys and
// an optional cached token, and an account section.
type Credentials struct {
	Auth    AuthSection    `yaml:"auth"`
	Account AccountSection `yaml:"account"`
}

type AuthSection struct {
	AppKey      string `yaml:"appkey"`
	AppSecret   string `yaml:"appsecret"`
	AccessToken string `yaml:"access_token,omitempty"`
	ExpiresAt   int64  `yaml:"expires_at,omitempty"` // unix seconds
}

type AccountSection struct {
	AccNo string `yaml:"accno"`
}

// Enabled reports whether both app keys are present.
func (c *Credentials) Enabled() bool {
	return c != nil && c.Auth.AppKey != "" && c.Auth.AppSecret != ""
}

// Token returns the cached bearer token and its expiry, if any.
func (c *Credentials) Token() (string, time.Time) {
	if c == nil || c.Auth.AccessToken == "" || c.Auth.ExpiresAt == 0 {
		return "", time.Time{}
	}
	return c.Auth.AccessToken, time.Unix(c.Auth.ExpiresAt, 0)
}

// SplitAccount splits an account number into the 8-digit account id and
// the 2-digit product code. Hyphens are ignored; a short number keeps the
// default product code "01".
func SplitAccount(accno string) (cano, product string) {
	clean := strings.TrimSpace(strings.ReplaceAll(accno, "-", ""))
	if len(clean) >= 10 {
		return clean[:8], clean[8:10]
	}
	return clean, "01"
}

// CredentialStore reads and rewrites a credentials file. Writes are
// serialized so concurrent token refreshes never interleave.
type CredentialStore struct {
	Path string
	mu   sync.Mutex
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{Path: path}
}

// Load returns nil credentials and no error when the file does not exist.
func (s *CredentialStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *CredentialStore) load() (*Credentials, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return &c, nil
}

// SaveToken writes the bearer token and expiry back into the file,
// leaving the other fields as they were.
func (s *CredentialStore) SaveToken(token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load()
	if err != nil {
		return err
	}
	if c == nil {
		c = &Credentials{}
	}
	c.Auth.AccessToken = token
	c.Auth.ExpiresAt = expiresAt.Unix()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
