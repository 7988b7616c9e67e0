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
	"time"

	"github.com/gorilla/mux"

	"courier/internal/data"
	"courier/internal/keys"
	"courier/internal/nlog"
	"courier/internal/receive"
)

// ConversationHandler is used to handle all conversation-related routes of
// the local API: listing threads, reading messages, marking as read and
// triggering a history catch-up.
type ConversationHandler struct {
	storage  *data.StorageManager
	receiver *receive.Receiver
	keyring  *keys.Keyring
	logger   nlog.Logger
}

func NewConversationHandler(storage *data.StorageManager, receiver *receive.Receiver, keyring *keys.Keyring, logger nlog.Logger) *ConversationHandler {
	return &ConversationHandler{
		storage:  storage,
		receiver: receiver,
		keyring:  keyring,
		logger:   logger,
	}
}

func (h *ConversationHandler) Logf(format string, v ...any) {
	h.logger.Logf(format, v...)
}

// List returns every conversation, most recent activity first.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.storage.GetConversationRepository().List()
	if err != nil {
		h.Logf("Error while listing conversations: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// Messages returns the messages of one conversation, oldest first.
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	conversation, err := h.storage.GetConversation(id)
	if err != nil {
		h.Logf("Error while reading conversation %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}
	if conversation == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown conversation"})
		return
	}

	messages, err := h.storage.GetMessageRepository().Get(id)
	if err != nil {
		h.Logf("Error while reading messages of %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// MarkRead resets the unread counter and bumps the local read marker.
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	keypair, ok := h.keyring.CurrentKeypair()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "identity is locked"})
		return
	}

	if err := h.storage.GetConversationRepository().MarkRead(id, keypair.PublicHex(), time.Now().Unix()); err != nil {
		h.Logf("Error while marking %s as read: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// FetchHistory triggers a one-shot catch-up against the relay and reports how
// many new messages were accepted.
func (h *ConversationHandler) FetchHistory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Since int64 `json:"since"` // unix seconds, 0 for the default window
	}
	if !readJSON(w, r, &body) {
		return
	}

	var since time.Time
	if body.Since > 0 {
		since = time.Unix(body.Since, 0)
	}

	accepted, err := h.receiver.FetchHistory(r.Context(), since)
	if err != nil {
		h.Logf("History catch-up failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "history catch-up failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"accepted": accepted})
}
