/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"filippo.io/edwards25519"
)

const identityPrivatePEMType = "ED25519 PRIVATE KEY"

// Keypair is a local identity: an Ed25519 signing key whose public key, in
// hex, is the identity string seen by the rest of the system. The same key
// also yields the Curve25519 form used for the encryption layers.
type Keypair struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// Generate creates a fresh random identity.
func Generate() (*Keypair, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate identity keypair: %w", err)
	}
	return &Keypair{private: private, public: public}, nil
}

// FromSeed rebuilds a keypair from its 32-byte seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed length: got %d want %d", len(seed), ed25519.SeedSize)
	}
	private := ed25519.NewKeyFromSeed(seed)
	return &Keypair{private: private, public: private.Public().(ed25519.PublicKey)}, nil
}

// PublicHex returns the identity string of this keypair.
func (k *Keypair) PublicHex() string {
	return hex.EncodeToString(k.public)
}

// Private exposes the signing key.
func (k *Keypair) Private() ed25519.PrivateKey {
	return k.private
}

// ECDHScalar derives the Curve25519 private scalar matching this identity,
// using the standard Ed25519 expansion (sha512 of the seed, clamped).
func (k *Keypair) ECDHScalar() []byte {
	h := sha512.Sum512(k.private.Seed())
	scalar := make([]byte, 32)
	copy(scalar, h[:32])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	return scalar
}

// ECDHPublic converts a hex identity string into the Curve25519 public key
// of the same identity, via the birational map between the two curves.
func ECDHPublic(identityHex string) ([]byte, error) {
	raw, err := hex.DecodeString(identityHex)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("invalid identity public key")
	}
	point, err := new(edwards25519.Point).SetBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("identity key is not a valid curve point: %w", err)
	}
	return point.BytesMontgomery(), nil
}

// EnsureKeypair loads the identity from a PEM file, generating and saving a
// new one on first run.
func EnsureKeypair(path string) (*Keypair, error) {
	keypair, err := LoadKeypair(path)
	if err == nil {
		return keypair, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	keypair, err = Generate()
	if err != nil {
		return nil, err
	}
	if err := SaveKeypair(path, keypair); err != nil {
		return nil, err
	}
	return keypair, nil
}

// LoadKeypair reads an identity from a PEM file.
func LoadKeypair(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity key: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("decode identity PEM: no PEM block")
	}
	if block.Type != identityPrivatePEMType {
		return nil, fmt.Errorf("decode identity PEM: unexpected type %q", block.Type)
	}
	if len(block.Bytes) != ed25519.SeedSize {
		return nil, fmt.Errorf("decode identity PEM: invalid seed size %d", len(block.Bytes))
	}

	return FromSeed(block.Bytes)
}

// SaveKeypair writes the identity seed to a PEM file, readable only by the owner.
func SaveKeypair(path string, keypair *Keypair) error {
	block := &pem.Block{
		Type:  identityPrivatePEMType,
		Bytes: keypair.private.Seed(),
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		return fmt.Errorf("write identity key: %w", err)
	}
	return nil
}
