package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rogersnm/todos/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestConfigStorage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := ConfigStorage{DataDir: dir}

	tok, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Save("tok-1"))
	tok, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	require.NoError(t, s.Clear())
	tok, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestConfigStorage_PreservesOtherKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.Save(dir, &config.Config{Backend: "cloud", Server: "http://x"}))

	require.NoError(t, ConfigStorage{DataDir: dir}.Save("tok"))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "cloud", cfg.Backend)
	assert.Equal(t, "http://x", cfg.Server)
	assert.Equal(t, "tok", cfg.AccessToken)
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage("a")
	tok, _ := s.Load()
	assert.Equal(t, "a", tok)

	require.NoError(t, s.Clear())
	tok, _ = s.Load()
	assert.Empty(t, tok)
}

func TestValidate_Blank(t *testing.T) {
	assert.ErrorIs(t, Validate("", time.Now()), ErrEmptyToken)
	assert.ErrorIs(t, Validate("   ", time.Now()), ErrEmptyToken)
}

func TestValidate_OpaqueAccepted(t *testing.T) {
	assert.NoError(t, Validate("opaque-token", time.Now()))
}

func TestValidate_MalformedJWT(t *testing.T) {
	assert.ErrorIs(t, Validate("not.a.jwt", time.Now()), ErrInvalidToken)
}

func TestValidate_ExpiredJWT(t *testing.T) {
	now := time.Now()
	tok := signed(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(-time.Minute).Unix()})
	assert.ErrorIs(t, Validate(tok, now), ErrExpiredToken)
}

func TestValidate_LiveJWT(t *testing.T) {
	now := time.Now()
	tok := signed(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(time.Hour).Unix()})
	assert.NoError(t, Validate(tok, now))
}

func TestValidate_JWTWithoutExpiry(t *testing.T) {
	tok := signed(t, jwt.MapClaims{"sub": "u1"})
	assert.NoError(t, Validate(tok, time.Now()))
}
