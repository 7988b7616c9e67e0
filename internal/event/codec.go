/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors returned while decoding and validating incoming envelopes.
// These are all shape problems, reported before any cryptographic work runs.
var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrWrongKind         = errors.New("unexpected event kind")
	ErrMissingRecipient  = errors.New("envelope has no recipient tag")
)

// DecodeEnvelope parses a raw transport record into a gift wrap event,
// rejecting anything that is not a well-formed envelope. Crypto is not
// touched here, so garbage is discarded cheaply.
func DecodeEnvelope(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := ValidateEnvelope(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ValidateEnvelope checks the shape of an already-parsed envelope: kind,
// identifier, signing fields and the presence of a recipient tag.
func ValidateEnvelope(ev *Event) error {
	if ev.Kind != KindGiftWrap {
		return fmt.Errorf("%w: got %d want %d", ErrWrongKind, ev.Kind, KindGiftWrap)
	}
	if !isLowerHex(ev.ID, 64) {
		return fmt.Errorf("%w: bad id", ErrMalformedEnvelope)
	}
	if !isLowerHex(ev.Pubkey, 64) {
		return fmt.Errorf("%w: bad pubkey", ErrMalformedEnvelope)
	}
	if !isLowerHex(ev.Sig, 128) {
		return fmt.Errorf("%w: bad signature", ErrMalformedEnvelope)
	}
	if ev.CreatedAt <= 0 {
		return fmt.Errorf("%w: bad timestamp", ErrMalformedEnvelope)
	}
	if ev.Content == "" {
		return fmt.Errorf("%w: empty content", ErrMalformedEnvelope)
	}
	if len(ev.TagValues(TagRecipient)) == 0 {
		return ErrMissingRecipient
	}
	return nil
}

func isLowerHex(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
