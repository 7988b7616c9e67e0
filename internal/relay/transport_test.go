/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package relay

import (
	"encoding/json"
	"testing"
)

func TestFilterMarshalOmitsEmptyFields(t *testing.T) {
	filter := Filter{
		Kinds: []int{1059},
		PTags: []string{"abcd"},
		Since: 1700000000,
	}

	raw, err := json.Marshal(filter)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"kinds":[1059],"#p":["abcd"],"since":1700000000}`
	if string(raw) != expected {
		t.Errorf("Expected %s, got %s", expected, raw)
	}
}

func TestFilterUnmarshalTagKeys(t *testing.T) {
	raw := []byte(`{"#e":["event-1"],"#p":["pubkey-1"],"limit":5}`)

	var filter Filter
	if err := json.Unmarshal(raw, &filter); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(filter.ETags) != 1 || filter.ETags[0] != "event-1" {
		t.Errorf("ETags %v", filter.ETags)
	}
	if len(filter.PTags) != 1 || filter.PTags[0] != "pubkey-1" {
		t.Errorf("PTags %v", filter.PTags)
	}
	if filter.Limit != 5 {
		t.Errorf("Limit %d", filter.Limit)
	}
}

func TestSplitFrames(t *testing.T) {
	verb, handle, body := splitFrames([][]byte{[]byte("EVENT"), []byte("sub-1"), []byte(`{}`)})
	if verb != "EVENT" || handle != "sub-1" || string(body) != "{}" {
		t.Errorf("Got %q %q %q", verb, handle, body)
	}

	// A leading empty delimiter frame must be skipped.
	verb, handle, body = splitFrames([][]byte{{}, []byte("EOSE"), []byte("sub-1")})
	if verb != "EOSE" || handle != "sub-1" || body != nil {
		t.Errorf("Got %q %q %q", verb, handle, body)
	}

	verb, handle, body = splitFrames([][]byte{[]byte("EOSE")})
	if verb != "EOSE" || handle != "" || body != nil {
		t.Errorf("Got %q %q %q", verb, handle, body)
	}

	verb, _, _ = splitFrames(nil)
	if verb != "" {
		t.Errorf("Empty message gave verb %q", verb)
	}
}
