/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package receive

import "sync"

// DedupGuard is a bounded set of recently processed envelope ids, used to
// skip the cryptographic work for replayed deliveries. It is an optimization
// only: persistence stays idempotent regardless, so forgetting an old id is
// harmless while rejecting a genuinely new one would not be.
//
// A fixed ring buffer backs the set: once full, each insert evicts exactly the
// oldest entry, so membership answers are exact for the most recent capacity
// ids. Safe to share amongst goroutines.
type DedupGuard struct {
	mu      sync.Mutex
	ring    []string
	head    int // index of the oldest entry
	count   int
	members map[string]struct{}
}

func NewDedupGuard(capacity int) *DedupGuard {
	if capacity < 1 {
		capacity = 1
	}
	return &DedupGuard{
		ring:    make([]string, capacity),
		members: make(map[string]struct{}, capacity),
	}
}

// Seen reports whether the id is currently tracked.
func (g *DedupGuard) Seen(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.members[id]
	return ok
}

// Mark records the id, evicting the oldest tracked id when full.
func (g *DedupGuard) Mark(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.members[id]; ok {
		return
	}

	if g.count == len(g.ring) {
		delete(g.members, g.ring[g.head])
		g.ring[g.head] = id
		g.head = (g.head + 1) % len(g.ring)
	} else {
		g.ring[(g.head+g.count)%len(g.ring)] = id
		g.count++
	}
	g.members[id] = struct{}{}
}

// Len returns the number of tracked ids, at most the capacity.
func (g *DedupGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}
