/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package event

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
)

// Event kinds used by the private message protocol.
// A rumor is the innermost plaintext draft, a seal wraps the encrypted rumor
// and carries the authentic sender signature, a gift wrap is the outermost
// container signed by a throwaway key.
const (
	KindSeal     = 13
	KindRumor    = 14
	KindGiftWrap = 1059
)

// Tag names carried by rumors and gift wraps.
const (
	TagRecipient    = "p"            // recipient (and extra participant) pubkeys
	TagConversation = "conversation" // canonical conversation identifier
	TagEvent        = "e"            // referenced event, with an optional "reply" marker
	MarkerReply     = "reply"
)

// Range used to fuzz event timestamps on the send path (2 days, in seconds),
// so that relay operators cannot correlate wraps by creation time.
const TimestampRange = 172800

// Represents a single protocol event, in the exact shape it travels on the wire.
type Event struct {
	ID        string     `json:"id"`         // Hex of the sha256 over the canonical serialization
	Pubkey    string     `json:"pubkey"`     // Hex of the author's public key
	CreatedAt int64      `json:"created_at"` // Unix seconds, possibly randomized by the sender
	Kind      int        `json:"kind"`       // One of the Kind* constants (other kinds exist in the wider protocol)
	Tags      [][]string `json:"tags"`       // Free-form tag list, first element of each tag is its name
	Content   string     `json:"content"`    // Plaintext or base64 ciphertext depending on the kind
	Sig       string     `json:"sig"`        // Hex signature over the ID, empty for rumors
}

// ComputeID calculates the canonical identifier of the event: the hex sha256
// of the array [0, pubkey, created_at, kind, tags, content].
// The signature does not participate, so the ID is stable across signing.
func ComputeID(ev *Event) (string, error) {
	serialized, err := canonicalSerialization(ev)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalSerialization(ev *Event) ([]byte, error) {
	tags := ev.Tags
	if tags == nil {
		tags = [][]string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	contentJSON, err := json.Marshal(ev.Content)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("[0,%q,%d,%d,%s,%s]", ev.Pubkey, ev.CreatedAt, ev.Kind, tagsJSON, contentJSON)), nil
}

// Sign computes the event ID and signs it with the given private key.
// The event's Pubkey must already be the hex of the matching public key.
func Sign(privateKey ed25519.PrivateKey, ev *Event) error {
	if len(privateKey) != ed25519.PrivateKeySize {
		return fmt.Errorf("invalid private key length: got %d want %d", len(privateKey), ed25519.PrivateKeySize)
	}

	id, err := ComputeID(ev)
	if err != nil {
		return err
	}
	idBytes, err := hex.DecodeString(id)
	if err != nil {
		return err
	}

	ev.ID = id
	ev.Sig = hex.EncodeToString(ed25519.Sign(privateKey, idBytes))
	return nil
}

// Verify checks that the event's ID matches its content and that the signature
// verifies against the event's own Pubkey. Any malformed field means false.
func Verify(ev *Event) bool {
	expected, err := ComputeID(ev)
	if err != nil || ev.ID != expected {
		return false
	}

	pubkey, err := hex.DecodeString(ev.Pubkey)
	if err != nil || len(pubkey) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(ev.Sig)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	idBytes, err := hex.DecodeString(ev.ID)
	if err != nil {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(pubkey), idBytes, sig)
}

// RandomizeTimestamp shifts ts by a uniform offset in [-rangeSeconds, +rangeSeconds].
func RandomizeTimestamp(ts int64, rangeSeconds int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(2*rangeSeconds+1))
	if err != nil {
		return ts
	}
	return ts + n.Int64() - rangeSeconds
}

// FirstTag returns the value of the first tag with the given name.
func (ev *Event) FirstTag(name string) (string, bool) {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1], true
		}
	}
	return "", false
}

// TagValues returns the values of every tag with the given name, in order.
func (ev *Event) TagValues(name string) []string {
	var values []string
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}

// HasRecipient checks whether the event carries a p tag for the given pubkey.
func (ev *Event) HasRecipient(pubkey string) bool {
	for _, value := range ev.TagValues(TagRecipient) {
		if value == pubkey {
			return true
		}
	}
	return false
}

// ReplyTo returns the event id referenced by an e tag carrying the reply
// marker. An e tag without a marker is also accepted as a reply reference.
func (ev *Event) ReplyTo() string {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == TagEvent {
			if len(tag) >= 4 && tag[3] != MarkerReply {
				continue
			}
			return tag[1]
		}
	}
	return ""
}
