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
	"strings"
	"testing"

	"github.com/gorilla/sessions"

	"courier/internal/keys"
	"courier/internal/nlog"
)

func testSessionHandler(t *testing.T) (*SessionHandler, *keys.Keyring) {
	t.Helper()
	keypair, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	ring, err := keys.NewKeyring(keypair, "hunter2")
	if err != nil {
		t.Fatalf("NewKeyring failed: %v", err)
	}
	return NewSessionHandler(ring, sessions.NewCookieStore([]byte("test-secret")), nlog.Nop()), ring
}

func TestUnlockWithWrongPassphrase(t *testing.T) {
	handler, ring := testSessionHandler(t)

	req := httptest.NewRequest("POST", "/session", strings.NewReader(`{"passphrase":"wrong"}`))
	rr := httptest.NewRecorder()

	handler.Unlock(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}
	if !ring.Locked() {
		t.Errorf("Wrong passphrase unlocked the ring")
	}
}

func TestUnlockWithCorrectPassphrase(t *testing.T) {
	handler, ring := testSessionHandler(t)

	req := httptest.NewRequest("POST", "/session", strings.NewReader(`{"passphrase":"hunter2"}`))
	rr := httptest.NewRecorder()

	handler.Unlock(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rr.Code)
	}
	if ring.Locked() {
		t.Errorf("Correct passphrase left the ring locked")
	}
	if len(rr.Result().Cookies()) == 0 {
		t.Errorf("No session cookie issued")
	}
}

func TestUnlockWithGarbageBody(t *testing.T) {
	handler, _ := testSessionHandler(t)

	req := httptest.NewRequest("POST", "/session", strings.NewReader("not json"))
	rr := httptest.NewRecorder()

	handler.Unlock(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestLockEndsSession(t *testing.T) {
	handler, ring := testSessionHandler(t)

	if err := ring.Unlock("hunter2"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	req := httptest.NewRequest("DELETE", "/session", nil)
	rr := httptest.NewRecorder()

	handler.Lock(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rr.Code)
	}
	if !ring.Locked() {
		t.Errorf("Lock left the ring unlocked")
	}
}
