/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package receive

import (
	"sync"

	"courier/internal/data"
	"courier/internal/entity"
	"courier/internal/event"
	"courier/internal/nlog"
)

const previewRunes = 80

// Reconciler turns a verified rumor into a persisted message row and keeps
// the conversation summary consistent with it. The message insert always
// happens first: the summary is only touched once the row is durable, so a
// crash in between can never produce an unread counter pointing at a ghost
// message.
type Reconciler struct {
	store    Store
	notifier *data.Notifier
	logger   nlog.Logger
	locks    keyedMutex
}

func NewReconciler(store Store, notifier *data.Notifier, logger nlog.Logger) *Reconciler {
	return &Reconciler{store: store, notifier: notifier, logger: logger}
}

// Persist writes the message exactly once and updates the summary.
// A duplicate envelope id is a successful no-op: nothing is written, no
// counter moves, no notification fires. Returns whether a new row was stored.
func (r *Reconciler) Persist(conversation *entity.Conversation, rumor *event.Event, senderPubkey, envelopeID string) (bool, error) {
	message := &entity.ConversationMessage{
		ID:             envelopeID,
		ConversationID: conversation.ID,
		From:           senderPubkey,
		Content:        rumor.Content,
		// Protocol time from the rumor, not local receipt time, so every
		// device orders the thread identically.
		Timestamp: rumor.CreatedAt,
		ReplyTo:   rumor.ReplyTo(),
	}

	// Insert and summary form one reconciliation unit; interleaving two of
	// them for the same conversation would lose unread increments.
	unlock := r.locks.lock(conversation.ID)
	defer unlock()

	inserted, err := r.store.InsertMessageIfAbsent(message)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}

	if err := r.store.UpdateConversationSummary(conversation.ID, message.Timestamp, preview(message.Content), true); err != nil {
		// The message itself is durable; only the summary is stale.
		return true, err
	}

	r.notifier.Publish(data.Change{Kind: data.MessageListChanged, ConversationID: conversation.ID})
	r.notifier.Publish(data.Change{Kind: data.ConversationListChanged, ConversationID: conversation.ID})
	return true, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewRunes {
		return content
	}
	return string(runes[:previewRunes])
}

// keyedMutex hands out one mutex per key, forgetting keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
