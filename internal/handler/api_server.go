/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"courier/internal/data"
	"courier/internal/keys"
	"courier/internal/nlog"
	"courier/internal/receive"
)

// APIConfig carries the HTTP-facing settings of the local API.
type APIConfig struct {
	ListenAddr   string
	SecretKey    string
	ReadTimeout  int64 // seconds
	WriteTimeout int64 // seconds
}

// APIServer manages the local HTTP API the presentation layer talks to.
type APIServer struct {
	running atomic.Bool

	logger nlog.Logger
	server *http.Server

	stopFromOutsideChan chan struct{}
	doneFromInsideChan  chan struct{}

	keyring  *keys.Keyring
	receiver *receive.Receiver
	storage  *data.StorageManager
}

func NewAPIServer(keyring *keys.Keyring, receiver *receive.Receiver, storage *data.StorageManager, logger nlog.Logger) *APIServer {
	return &APIServer{
		logger:              logger,
		keyring:             keyring,
		receiver:            receiver,
		storage:             storage,
		stopFromOutsideChan: make(chan struct{}),
		doneFromInsideChan:  make(chan struct{}),
	}
}

func (s *APIServer) Logf(format string, v ...any) {
	s.logger.Logf(format, v...)
}

func (s *APIServer) IsRunning() bool {
	return s.running.Load()
}

// requireSession only lets authenticated (unlocked) sessions through.
func (s *APIServer) requireSession(store *sessions.CookieStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := store.Get(r, sessionName)
		if unlocked, ok := session.Values["unlocked"].(bool); !ok || !unlocked {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// lockedMiddleware answers 503 while the keyring is locked, since the data
// routes are meaningless without an available identity.
func (s *APIServer) lockedMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.keyring.Locked() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "identity is locked"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run builds the router and serves until the context is cancelled or Stop is
// called.
func (s *APIServer) Run(ctx context.Context, cfg *APIConfig) error {
	s.Logf("Local API starting...")

	cookieStore := sessions.NewCookieStore([]byte(cfg.SecretKey))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(7 * 24 * time.Hour.Seconds()),
	}

	sessionHandler := NewSessionHandler(s.keyring, cookieStore, s.logger)
	conversationHandler := NewConversationHandler(s.storage, s.receiver, s.keyring, s.logger)

	r := mux.NewRouter()

	// Session routes
	r.HandleFunc("/session", sessionHandler.Unlock).Methods("POST")
	r.HandleFunc("/session", sessionHandler.Lock).Methods("DELETE")

	// Data routes, gated on both the session and the keyring
	dataRoutes := mux.NewRouter()
	dataRoutes.HandleFunc("/conversations", conversationHandler.List).Methods("GET")
	dataRoutes.HandleFunc("/conversations/{id}/messages", conversationHandler.Messages).Methods("GET")
	dataRoutes.HandleFunc("/conversations/{id}/read", conversationHandler.MarkRead).Methods("POST")
	dataRoutes.HandleFunc("/history", conversationHandler.FetchHistory).Methods("POST")
	r.PathPrefix("/").Handler(s.requireSession(cookieStore, s.lockedMiddleware(dataRoutes)))

	s.server = &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    time.Duration(cfg.ReadTimeout * int64(time.Second)),
		WriteTimeout:   time.Duration(cfg.WriteTimeout * int64(time.Second)),
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Logf("Received stop signal. Shutting down...")
		case <-s.stopFromOutsideChan:
			s.Logf("Server was asked to stop. Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.Logf("Error during shutdown... %v", err)
		}
		close(s.doneFromInsideChan)
	}()

	s.running.Store(true)
	s.Logf("Local API listening on %s", cfg.ListenAddr)

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		s.Logf("FATAL: HTTP Server error{%v}", err)
		s.running.Store(false)
		return fmt.Errorf("local API server: %w", err)
	}

	<-s.doneFromInsideChan
	s.running.Store(false)
	return nil
}

func (s *APIServer) Stop() {
	close(s.stopFromOutsideChan)
	<-s.doneFromInsideChan
}
