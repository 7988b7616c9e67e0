/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"

	"courier/internal/keys"
	"courier/internal/nlog"
)

func lockedTestServer(t *testing.T, passphrase string) *APIServer {
	t.Helper()
	keypair, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	ring, err := keys.NewKeyring(keypair, passphrase)
	if err != nil {
		t.Fatalf("NewKeyring failed: %v", err)
	}
	return NewAPIServer(ring, nil, nil, nlog.Nop())
}

func TestLockedMiddlewareBlocksWhileLocked(t *testing.T) {
	s := lockedTestServer(t, "hunter2")

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Called despite the keyring being locked!")
	})

	toTest := s.lockedMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/conversations", nil)
	rr := httptest.NewRecorder()

	toTest.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rr.Code)
	}
}

func TestLockedMiddlewarePassesWhenUnlocked(t *testing.T) {
	s := lockedTestServer(t, "")

	called := false
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	toTest := s.lockedMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/conversations", nil)
	rr := httptest.NewRecorder()

	toTest.ServeHTTP(rr, req)

	if rr.Code == http.StatusServiceUnavailable {
		t.Errorf("Got 503 with an unlocked keyring")
	}
	if !called {
		t.Errorf("Next handler never ran")
	}
}

func TestRequireSessionRejectsAnonymous(t *testing.T) {
	s := lockedTestServer(t, "")
	cookieStore := sessions.NewCookieStore([]byte("test-secret"))

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Called without a session!")
	})

	toTest := s.requireSession(cookieStore, nextHandler)

	req := httptest.NewRequest("GET", "/conversations", nil)
	rr := httptest.NewRecorder()

	toTest.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}
}
