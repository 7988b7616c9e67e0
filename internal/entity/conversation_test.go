/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "testing"

func TestSetParticipantsDeduplicatesAndSorts(t *testing.T) {
	var conversation Conversation
	conversation.SetParticipants([]string{"charlie", "alice", "bob", "alice", ""})

	got := conversation.ParticipantList()
	expected := []string{"alice", "bob", "charlie"}

	if len(got) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Position %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
}

func TestParticipantsAreOrderInsensitive(t *testing.T) {
	var first, second Conversation
	first.SetParticipants([]string{"alice", "bob"})
	second.SetParticipants([]string{"bob", "alice"})

	// The stored column value is what the direct-conversation lookup probes
	// with, so it must be identical regardless of input order.
	if first.Participants != second.Participants {
		t.Errorf("Same set encoded differently: %s vs %s", first.Participants, second.Participants)
	}
}

func TestHasParticipant(t *testing.T) {
	var conversation Conversation
	conversation.SetParticipants([]string{"alice", "bob"})

	if !conversation.HasParticipant("alice") {
		t.Errorf("Missing a known participant")
	}
	if conversation.HasParticipant("mallory") {
		t.Errorf("Found a stranger")
	}
}

func TestParticipantListOnBrokenColumn(t *testing.T) {
	conversation := Conversation{Participants: "not json"}
	if got := conversation.ParticipantList(); got != nil {
		t.Errorf("Broken column decoded to %v", got)
	}
}
