// Package server is a development backend speaking the todos HTTP API and
// realtime feed, so the cloud client can be run and tested end to end.
package server

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rogersnm/todos/internal/store"
	"github.com/sirupsen/logrus"
)

const defaultTokenTTL = 24 * time.Hour

type Config struct {
	// Secret signs access tokens. A random one is generated when empty.
	Secret []byte
	// Stores creates the collection for a user. Defaults to MemoryStores.
	Stores StoreFactory
	// NoAuth serves one shared collection without requiring a token.
	NoAuth   bool
	TokenTTL time.Duration
	Logger   logrus.FieldLogger
	// Registry receives the server's metrics. Defaults to a private registry.
	Registry *prometheus.Registry
}

type Server struct {
	log     logrus.FieldLogger
	noAuth  bool
	users   *userDB
	tokens  *tokenIssuer
	colls   *collections
	hub     *hub
	metrics *metrics
	router  *mux.Router
}

func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		if _, err := rand.Read(cfg.Secret); err != nil {
			return nil, fmt.Errorf("generating secret: %w", err)
		}
	}
	if cfg.Stores == nil {
		cfg.Stores = MemoryStores()
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	m, err := newMetrics(cfg.Registry)
	if err != nil {
		return nil, err
	}

	s := &Server{
		log:     cfg.Logger,
		noAuth:  cfg.NoAuth,
		users:   newUserDB(),
		tokens:  newTokenIssuer(cfg.Secret, cfg.TokenTTL),
		colls:   newCollections(cfg.Stores),
		hub:     newHub(cfg.Logger, m),
		metrics: m,
	}
	s.router = s.routes(cfg.Registry)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes(reg *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.Use(s.observe)

	r.Methods(http.MethodPost).Path("/register").HandlerFunc(s.register)
	r.Methods(http.MethodPost).Path("/login").HandlerFunc(s.login)
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authenticate)
	authed.Methods(http.MethodPost).Path("/logout").HandlerFunc(s.logout)
	authed.Methods(http.MethodGet).Path("/user").HandlerFunc(s.currentUser)
	authed.Methods(http.MethodGet).Path("/items").HandlerFunc(s.listItems)
	authed.Methods(http.MethodPost).Path("/items").HandlerFunc(s.createItem)
	authed.Methods(http.MethodPatch).Path("/items:bulkSetCompleted").HandlerFunc(s.bulkSetCompleted)
	authed.Methods(http.MethodDelete).Path("/items:bulkDeleteCompleted").HandlerFunc(s.bulkDelete)
	authed.Methods(http.MethodGet).Path("/items/{id}").HandlerFunc(s.getItem)
	authed.Methods(http.MethodPatch).Path("/items/{id}").HandlerFunc(s.updateItem)
	authed.Methods(http.MethodDelete).Path("/items/{id}").HandlerFunc(s.deleteItem)
	authed.Methods(http.MethodGet).Path(store.RealtimePath).HandlerFunc(s.realtime)
	return r
}

// observe logs and counts every request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		s.metrics.observe(r.Method, path, m.Code, m.Duration)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     path,
			"status":   m.Code,
			"duration": m.Duration,
		}).Info("handled")
	})
}

// --- responses ---

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// writeStoreError maps a store failure onto a status.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	s.log.WithFields(logrus.Fields{"path": r.URL.Path, "error": err}).Error("store failure")
	writeError(w, http.StatusInternalServerError, "internal", "internal error")
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
