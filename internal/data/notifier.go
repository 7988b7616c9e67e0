/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import "sync"

// Kinds of state changes the pipeline announces after a reconciliation.
const (
	ConversationListChanged = "conversation-list-changed"
	MessageListChanged      = "message-list-changed"
)

// Change is one state-change notification.
type Change struct {
	Kind           string
	ConversationID string
}

// Notifier fans state changes out to in-process observers (presentation
// layers, tests). Publishing never blocks: when a subscriber's buffer is
// full, its oldest pending change is dropped to make room.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Change)}
}

// Subscribe registers an observer. The returned cancel function removes the
// subscription and closes the channel.
func (n *Notifier) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}

	n.mu.Lock()
	id := n.next
	n.next++
	ch := make(chan Change, buffer)
	n.subs[id] = ch
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the change to every subscriber without blocking the caller.
func (n *Notifier) Publish(change Change) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		select {
		case sub <- change:
		default:
			// Full buffer: drop the oldest pending change and retry once.
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- change:
			default:
			}
		}
	}
}
