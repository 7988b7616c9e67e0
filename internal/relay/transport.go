/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package relay

import (
	"time"

	"courier/internal/event"
)

// Filter selects events on the relay, in the protocol's JSON shape.
type Filter struct {
	IDs     []string `json:"ids,omitempty"`     // Event ids
	Authors []string `json:"authors,omitempty"` // Author public keys
	Kinds   []int    `json:"kinds,omitempty"`   // Event kinds
	ETags   []string `json:"#e,omitempty"`      // Referenced event ids
	PTags   []string `json:"#p,omitempty"`      // Referenced pubkeys (recipient tags)
	Since   int64    `json:"since,omitempty"`   // Created-at greater than or equal
	Until   int64    `json:"until,omitempty"`   // Created-at less than
	Limit   int      `json:"limit,omitempty"`   // Maximum number of events
}

// Handle identifies an active subscription.
type Handle string

// Transport is the interface the pipeline consumes to talk to the relay:
// a live subscription stream plus a bounded bulk query for catch-up.
type Transport interface {

	// Subscribe opens a live subscription. onEvent runs for each delivered
	// event, onEOSE once when the relay has drained its stored backlog.
	Subscribe(filters []Filter, onEvent func(*event.Event), onEOSE func()) (Handle, error)

	// Unsubscribe cancels a subscription previously opened with Subscribe.
	Unsubscribe(handle Handle) error

	// Query performs a one-shot bulk fetch, returning whatever arrived before
	// the deadline. A timeout is not an error: partial results still count.
	Query(filters []Filter, timeout time.Duration) ([]*event.Event, error)

	// Close tears down the connection and every open subscription.
	Close()
}
