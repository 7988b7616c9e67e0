/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"

	"courier/internal/keys"
	"courier/internal/nlog"
)

// SessionHandler is used to handle the unlock/lock routes of the local API.
// Unlocking the keyring is what lets the receive pipeline decrypt traffic.
type SessionHandler struct {
	keyring *keys.Keyring
	store   *sessions.CookieStore
	logger  nlog.Logger
}

func NewSessionHandler(keyring *keys.Keyring, cookieStore *sessions.CookieStore, logger nlog.Logger) *SessionHandler {
	return &SessionHandler{
		keyring: keyring,
		store:   cookieStore,
		logger:  logger,
	}
}

func (h *SessionHandler) Logf(format string, v ...any) {
	h.logger.Logf(format, v...)
}

// Unlock verifies the passphrase, unlocks the keyring and opens a session.
func (h *SessionHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Passphrase string `json:"passphrase"`
	}
	if !readJSON(w, r, &body) {
		return
	}

	if err := h.keyring.Unlock(body.Passphrase); err != nil {
		if errors.Is(err, keys.ErrWrongPassphrase) {
			h.Logf("Rejected unlock attempt")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "wrong passphrase"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unlock failed"})
		return
	}

	session, _ := h.store.Get(r, sessionName)
	session.Values["unlocked"] = true
	if err := session.Save(r, w); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session save failed"})
		return
	}

	h.Logf("Keyring unlocked")
	writeJSON(w, http.StatusNoContent, nil)
}

// Lock withdraws the keyring and ends the session.
func (h *SessionHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.keyring.Lock()

	session, _ := h.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	session.Save(r, w)

	h.Logf("Keyring locked")
	writeJSON(w, http.StatusNoContent, nil)
}
