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
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrWrongPassphrase = errors.New("wrong passphrase")

// Keyring gates access to the local identity. While locked, the private key
// is unavailable and callers must treat incoming traffic as undeliverable.
// Safe to share amongst goroutines.
type Keyring struct {
	mu       sync.RWMutex
	keypair  *Keypair
	passHash []byte // bcrypt hash of the unlock passphrase; empty means no passphrase
	locked   bool
}

// NewKeyring wraps a keypair. With a non-empty passphrase the ring starts
// locked and Unlock must be called before the key can be used.
func NewKeyring(keypair *Keypair, passphrase string) (*Keyring, error) {
	ring := &Keyring{keypair: keypair}
	if passphrase != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		ring.passHash = hash
		ring.locked = true
	}
	return ring, nil
}

// Unlock verifies the passphrase and makes the keypair available.
func (k *Keyring) Unlock(passphrase string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.passHash) == 0 {
		k.locked = false
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(k.passHash, []byte(passphrase)); err != nil {
		return ErrWrongPassphrase
	}
	k.locked = false
	return nil
}

// Lock withdraws the keypair until the next successful Unlock.
func (k *Keyring) Lock() {
	k.mu.Lock()
	k.locked = true
	k.mu.Unlock()
}

// Locked reports whether the identity is currently unavailable.
func (k *Keyring) Locked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.locked
}

// CurrentKeypair returns the identity keypair, or false while locked.
func (k *Keyring) CurrentKeypair() (*Keypair, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.locked || k.keypair == nil {
		return nil, false
	}
	return k.keypair, true
}
