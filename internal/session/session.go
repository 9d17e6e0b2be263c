package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rogersnm/todos/internal/config"
)

var (
	ErrEmptyToken   = errors.New("empty token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Storage is durable client-side storage for the session token.
// Load returns "" when no token is stored.
type Storage interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// ConfigStorage keeps the token under access_token in the config file.
type ConfigStorage struct {
	DataDir string
}

func (s ConfigStorage) Load() (string, error) {
	cfg, err := config.Load(s.DataDir)
	if err != nil {
		return "", err
	}
	return cfg.AccessToken, nil
}

func (s ConfigStorage) Save(token string) error {
	cfg, err := config.Load(s.DataDir)
	if err != nil {
		return err
	}
	cfg.AccessToken = token
	if err := config.Save(s.DataDir, cfg); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

func (s ConfigStorage) Clear() error {
	return s.Save("")
}

type MemoryStorage struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStorage(token string) *MemoryStorage {
	return &MemoryStorage{token: token}
}

func (s *MemoryStorage) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStorage) Save(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Clear() error {
	return s.Save("")
}

// Validate rejects tokens that can never authenticate: blank ones, and
// JWT-shaped ones that do not parse or whose exp claim has passed.
// Opaque tokens are accepted as is; the signature is left to the server.
func Validate(token string, now time.Time) error {
	if strings.TrimSpace(token) == "" {
		return ErrEmptyToken
	}
	if strings.Count(token, ".") != 2 {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil && !now.Before(exp.Time) {
		return ErrExpiredToken
	}
	return nil
}
