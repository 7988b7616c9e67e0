/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package wrap implements the two-layer encryption scheme used for private
// messages: a rumor (plaintext draft) is encrypted into a seal signed by the
// real sender, and the seal is encrypted into a gift wrap signed by a
// throwaway key, so that relays see neither content nor sender.
package wrap

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"courier/internal/event"
	"courier/internal/keys"
)

// Errors for the individual unwrap steps. All of them mean the envelope is
// dropped; they are never surfaced to the sender.
var (
	ErrOuterSignatureInvalid = errors.New("outer signature invalid")
	ErrNotAddressedToUs      = errors.New("envelope not addressed to local identity")
	ErrOuterDecryptFailed    = errors.New("outer decrypt failed")
	ErrMalformedSeal         = errors.New("malformed seal")
	ErrSealSignatureInvalid  = errors.New("seal signature invalid")
	ErrInnerDecryptFailed    = errors.New("inner decrypt failed")
	ErrMalformedRumor        = errors.New("malformed rumor")
)

const (
	payloadVersion = 1
	keySalt        = "courier-wrap-v1"
)

// UnwrappedMessage is the only structure downstream code may trust for sender
// identity. SenderPubkey comes from the verified seal, never from the
// envelope's throwaway key.
type UnwrappedMessage struct {
	Rumor        *event.Event
	SenderPubkey string
	SealVerified bool
}

// ConversationKey derives the symmetric key shared between the local identity
// and a peer: X25519 over the Curve25519 forms of both keys, stretched with
// HKDF-SHA256. Both sides compute the same key.
func ConversationKey(local *keys.Keypair, peerIdentity string) ([]byte, error) {
	peerPublic, err := keys.ECDHPublic(peerIdentity)
	if err != nil {
		return nil, err
	}
	shared, err := curve25519.X25519(local.ECDHScalar(), peerPublic)
	if err != nil {
		return nil, fmt.Errorf("key agreement failed: %w", err)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, []byte(keySalt), nil), key); err != nil {
		return nil, err
	}
	return key, nil
}

// encrypt seals plaintext with XChaCha20-Poly1305 under key, producing
// base64(version || nonce || ciphertext).
func encrypt(key, plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, payloadVersion)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// decrypt reverses encrypt, rejecting unknown versions and truncated payloads.
func decrypt(key []byte, payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	if len(raw) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, errors.New("ciphertext too short")
	}
	if raw[0] != payloadVersion {
		return nil, fmt.Errorf("unknown payload version %d", raw[0])
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	return aead.Open(nil, nonce, raw[1+chacha20poly1305.NonceSizeX:], nil)
}

// Unwrap runs the full receive-side verification chain on an envelope.
// Every step is mandatory; in particular a seal whose signature does not
// verify is rejected outright, the throwaway envelope key is never accepted
// as a substitute sender identity.
func Unwrap(envelope *event.Event, local *keys.Keypair) (*UnwrappedMessage, error) {
	if !event.Verify(envelope) {
		return nil, ErrOuterSignatureInvalid
	}
	if !envelope.HasRecipient(local.PublicHex()) {
		return nil, ErrNotAddressedToUs
	}

	outerKey, err := ConversationKey(local, envelope.Pubkey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOuterDecryptFailed, err)
	}
	sealJSON, err := decrypt(outerKey, envelope.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOuterDecryptFailed, err)
	}

	var seal event.Event
	if err := json.Unmarshal(sealJSON, &seal); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSeal, err)
	}
	if seal.Kind != event.KindSeal {
		return nil, fmt.Errorf("%w: kind %d", ErrMalformedSeal, seal.Kind)
	}
	if !event.Verify(&seal) {
		return nil, ErrSealSignatureInvalid
	}

	innerKey, err := ConversationKey(local, seal.Pubkey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInnerDecryptFailed, err)
	}
	rumorJSON, err := decrypt(innerKey, seal.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInnerDecryptFailed, err)
	}

	var rumor event.Event
	if err := json.Unmarshal(rumorJSON, &rumor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRumor, err)
	}
	if rumor.Kind != event.KindRumor {
		return nil, fmt.Errorf("%w: kind %d", ErrMalformedRumor, rumor.Kind)
	}

	return &UnwrappedMessage{
		Rumor:        &rumor,
		SenderPubkey: seal.Pubkey,
		SealVerified: true,
	}, nil
}
