package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rogersnm/todos/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// sharedUser owns the single collection served when auth is disabled.
const sharedUser = "shared"

var (
	errUserExists         = errors.New("email already registered")
	errInvalidCredentials = errors.New("invalid username or password")
)

type account struct {
	user model.User
	hash []byte
}

type userDB struct {
	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account
}

func newUserDB() *userDB {
	return &userDB{
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
	}
}

func (db *userDB) create(reg model.Registration) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}
	email := strings.ToLower(strings.TrimSpace(reg.Email))

	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.byEmail[email]; ok {
		return model.User{}, errUserExists
	}
	acc := &account{
		user: model.User{ID: uuid.NewString(), Name: reg.Name, Email: email},
		hash: hash,
	}
	db.byEmail[email] = acc
	db.byID[acc.user.ID] = acc
	return acc.user, nil
}

// verify checks a password for the account with the given email.
func (db *userDB) verify(creds model.Credentials) (model.User, error) {
	db.mu.RLock()
	acc, ok := db.byEmail[strings.ToLower(strings.TrimSpace(creds.Username))]
	db.mu.RUnlock()
	if !ok {
		return model.User{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(creds.Password)); err != nil {
		return model.User{}, errInvalidCredentials
	}
	return acc.user, nil
}

func (db *userDB) get(userID string) (model.User, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	acc, ok := db.byID[userID]
	if !ok {
		return model.User{}, false
	}
	return acc.user, true
}

// --- tokens ---

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// tokenIssuer signs HS256 access tokens and remembers revoked token ids.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func newTokenIssuer(secret []byte, ttl time.Duration) *tokenIssuer {
	return &tokenIssuer{
		secret:  secret,
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (ti *tokenIssuer) issue(u model.User) (string, error) {
	now := ti.now()
	c := claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(ti.secret)
}

func (ti *tokenIssuer) verify(token string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(ti.now))
	if err != nil {
		return nil, err
	}

	ti.mu.Lock()
	defer ti.mu.Unlock()
	if _, ok := ti.revoked[c.ID]; ok {
		return nil, errors.New("token revoked")
	}
	return c, nil
}

func (ti *tokenIssuer) revoke(c *claims) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	now := ti.now()
	// Expired entries can never verify again.
	for jti, exp := range ti.revoked {
		if exp.Before(now) {
			delete(ti.revoked, jti)
		}
	}
	exp := now.Add(ti.ttl)
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	ti.revoked[c.ID] = exp
}

// --- middleware ---

type ctxKey int

const (
	userKey ctxKey = iota
	claimsKey
)

func userID(ctx context.Context) string {
	uid, _ := ctx.Value(userKey).(string)
	return uid
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}

// authenticate resolves the bearer token to a user. With auth disabled every
// request without a valid token lands in the shared collection.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			if s.noAuth {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, sharedUser)))
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		c, err := s.tokens.verify(tok)
		if err == nil {
			if _, ok := s.users.get(c.Subject); !ok {
				err = errors.New("unknown user")
			}
		}
		if err != nil {
			s.log.WithField("error", err).Warn("token rejected")
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, c.Subject)
		ctx = context.WithValue(ctx, claimsKey, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// --- handlers ---

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := decodeBody(r, &reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(reg.Email) == "" || reg.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation", "email and password are required")
		return
	}

	u, err := s.users.create(reg)
	if errors.Is(err, errUserExists) {
		writeError(w, http.StatusConflict, "conflict", err.Error())
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.log.WithField("user", u.ID).Info("registered")
	writeData(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeBody(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	u, err := s.users.verify(creds)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	tok, err := s.tokens.issue(u)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": tok,
		"token_type":   "bearer",
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, ok := r.Context().Value(claimsKey).(*claims); ok {
		s.tokens.revoke(c)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.users.get(userID(r.Context()))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no user for this session")
		return
	}
	writeData(w, http.StatusOK, u)
}
