/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package keys

import (
	"errors"
	"testing"
)

func TestKeyringWithoutPassphraseStartsUnlocked(t *testing.T) {
	keypair, _ := Generate()
	ring, err := NewKeyring(keypair, "")
	if err != nil {
		t.Fatalf("NewKeyring failed: %v", err)
	}

	if ring.Locked() {
		t.Errorf("Ring without passphrase started locked")
	}
	if _, ok := ring.CurrentKeypair(); !ok {
		t.Errorf("Keypair unavailable without a passphrase set")
	}
}

func TestKeyringWithPassphraseStartsLocked(t *testing.T) {
	keypair, _ := Generate()
	ring, err := NewKeyring(keypair, "hunter2")
	if err != nil {
		t.Fatalf("NewKeyring failed: %v", err)
	}

	if !ring.Locked() {
		t.Errorf("Ring with passphrase started unlocked")
	}
	if _, ok := ring.CurrentKeypair(); ok {
		t.Errorf("Keypair available while locked")
	}
}

func TestKeyringUnlock(t *testing.T) {
	keypair, _ := Generate()
	ring, _ := NewKeyring(keypair, "hunter2")

	if err := ring.Unlock("wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase, got %v", err)
	}
	if !ring.Locked() {
		t.Errorf("Failed unlock attempt opened the ring")
	}

	if err := ring.Unlock("hunter2"); err != nil {
		t.Fatalf("Correct passphrase rejected: %v", err)
	}
	got, ok := ring.CurrentKeypair()
	if !ok {
		t.Fatalf("Keypair still unavailable after unlock")
	}
	if got.PublicHex() != keypair.PublicHex() {
		t.Errorf("Unlocked a different keypair")
	}
}

func TestKeyringLockAgain(t *testing.T) {
	keypair, _ := Generate()
	ring, _ := NewKeyring(keypair, "hunter2")

	if err := ring.Unlock("hunter2"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	ring.Lock()

	if !ring.Locked() {
		t.Errorf("Lock did not lock")
	}
	if _, ok := ring.CurrentKeypair(); ok {
		t.Errorf("Keypair available after Lock")
	}
}
