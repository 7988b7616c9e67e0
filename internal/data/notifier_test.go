/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import "testing"

func TestNotifierDeliversToAllSubscribers(t *testing.T) {
	notifier := NewNotifier()

	first, cancelFirst := notifier.Subscribe(2)
	defer cancelFirst()
	second, cancelSecond := notifier.Subscribe(2)
	defer cancelSecond()

	notifier.Publish(Change{Kind: MessageListChanged, ConversationID: "conv-1"})

	for name, ch := range map[string]<-chan Change{"first": first, "second": second} {
		select {
		case change := <-ch:
			if change.ConversationID != "conv-1" {
				t.Errorf("%s subscriber got %v", name, change)
			}
		default:
			t.Errorf("%s subscriber got nothing", name)
		}
	}
}

func TestNotifierNeverBlocksOnFullSubscriber(t *testing.T) {
	notifier := NewNotifier()

	ch, cancel := notifier.Subscribe(1)
	defer cancel()

	// Two publishes into a one-slot buffer: the second must not block and
	// must displace the first.
	notifier.Publish(Change{Kind: MessageListChanged, ConversationID: "old"})
	notifier.Publish(Change{Kind: MessageListChanged, ConversationID: "new"})

	select {
	case change := <-ch:
		if change.ConversationID != "new" {
			t.Errorf("Expected the newest change to survive, got %v", change)
		}
	default:
		t.Errorf("Subscriber got nothing")
	}
}

func TestNotifierCancelClosesChannel(t *testing.T) {
	notifier := NewNotifier()

	ch, cancel := notifier.Subscribe(1)
	cancel()

	if _, open := <-ch; open {
		t.Errorf("Channel still open after cancel")
	}

	// Publishing after cancel must not panic on the closed channel.
	notifier.Publish(Change{Kind: ConversationListChanged})
	cancel()
}
