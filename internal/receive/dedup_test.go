/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package receive

import (
	"fmt"
	"sync"
	"testing"
)

func TestDedupGuardTracksMarkedIds(t *testing.T) {
	guard := NewDedupGuard(8)

	if guard.Seen("a") {
		t.Errorf("Fresh guard claims to have seen a")
	}
	guard.Mark("a")
	if !guard.Seen("a") {
		t.Errorf("Marked id not seen")
	}
	guard.Mark("a")
	if guard.Len() != 1 {
		t.Errorf("Duplicate mark grew the guard to %d", guard.Len())
	}
}

func TestDedupGuardEvictsExactlyTheOldest(t *testing.T) {
	guard := NewDedupGuard(3)

	guard.Mark("a")
	guard.Mark("b")
	guard.Mark("c")
	guard.Mark("d") // evicts a, only a

	if guard.Seen("a") {
		t.Errorf("Oldest id survived the eviction")
	}
	for _, id := range []string{"b", "c", "d"} {
		if !guard.Seen(id) {
			t.Errorf("Recent id %q evicted", id)
		}
	}
	if guard.Len() != 3 {
		t.Errorf("Guard holds %d ids, capacity is 3", guard.Len())
	}
}

func TestDedupGuardStaysBounded(t *testing.T) {
	guard := NewDedupGuard(16)

	for i := range 1000 {
		guard.Mark(fmt.Sprintf("id-%d", i))
	}

	if guard.Len() != 16 {
		t.Errorf("Guard grew to %d entries", guard.Len())
	}
	// The most recent 16 ids are all still tracked.
	for i := 984; i < 1000; i++ {
		if !guard.Seen(fmt.Sprintf("id-%d", i)) {
			t.Errorf("Recent id id-%d evicted early", i)
		}
	}
}

func TestDedupGuardConcurrentAccess(t *testing.T) {
	guard := NewDedupGuard(128)

	var wg sync.WaitGroup
	for worker := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				id := fmt.Sprintf("w%d-%d", worker, i)
				guard.Mark(id)
				guard.Seen(id)
			}
		}()
	}
	wg.Wait()

	if guard.Len() > 128 {
		t.Errorf("Guard exceeded its capacity: %d", guard.Len())
	}
}
