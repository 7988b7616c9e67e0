/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package wrap

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"courier/internal/event"
	"courier/internal/keys"
)

func makeParties(t *testing.T) (sender, recipient *keys.Keypair) {
	t.Helper()
	var err error
	if sender, err = keys.Generate(); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if recipient, err = keys.Generate(); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return sender, recipient
}

func TestConversationKeyIsSymmetric(t *testing.T) {
	alice, bob := makeParties(t)

	fromAlice, err := ConversationKey(alice, bob.PublicHex())
	if err != nil {
		t.Fatalf("ConversationKey failed: %v", err)
	}
	fromBob, err := ConversationKey(bob, alice.PublicHex())
	if err != nil {
		t.Fatalf("ConversationKey failed: %v", err)
	}

	if !bytes.Equal(fromAlice, fromBob) {
		t.Errorf("Both sides should derive the same key")
	}
}

func TestWrapAndUnwrapRoundTrip(t *testing.T) {
	sender, recipient := makeParties(t)
	now := time.Now().Unix()

	envelope, err := WrapMessage(sender, RumorOptions{
		Recipient:      recipient.PublicHex(),
		ConversationID: "conv-1",
		Content:        "the plan is on",
		ReplyTo:        "parent-event-id",
	}, now)
	if err != nil {
		t.Fatalf("WrapMessage failed: %v", err)
	}

	if envelope.Kind != event.KindGiftWrap {
		t.Fatalf("Expected kind %d, got %d", event.KindGiftWrap, envelope.Kind)
	}
	if envelope.Pubkey == sender.PublicHex() {
		t.Errorf("Envelope leaks the real sender key")
	}

	unwrapped, err := Unwrap(envelope, recipient)
	if err != nil {
		t.Fatalf("Unwrap failed: %v", err)
	}

	if unwrapped.SenderPubkey != sender.PublicHex() {
		t.Errorf("Sender must come from the seal: expected %s, got %s", sender.PublicHex(), unwrapped.SenderPubkey)
	}
	if !unwrapped.SealVerified {
		t.Errorf("Seal not marked as verified")
	}
	if unwrapped.Rumor.Content != "the plan is on" {
		t.Errorf("Content mangled: %q", unwrapped.Rumor.Content)
	}
	if id, _ := unwrapped.Rumor.FirstTag(event.TagConversation); id != "conv-1" {
		t.Errorf("Conversation tag mangled: %q", id)
	}
	if unwrapped.Rumor.ReplyTo() != "parent-event-id" {
		t.Errorf("Reply reference mangled: %q", unwrapped.Rumor.ReplyTo())
	}
	if unwrapped.Rumor.Sig != "" {
		t.Errorf("Rumors must stay unsigned")
	}
}

func TestUnwrapRejectsWrongRecipient(t *testing.T) {
	sender, recipient := makeParties(t)
	eavesdropper, _ := keys.Generate()

	envelope, err := WrapMessage(sender, RumorOptions{
		Recipient: recipient.PublicHex(),
		Content:   "secret",
	}, time.Now().Unix())
	if err != nil {
		t.Fatalf("WrapMessage failed: %v", err)
	}

	if _, err := Unwrap(envelope, eavesdropper); !errors.Is(err, ErrNotAddressedToUs) {
		t.Errorf("Expected ErrNotAddressedToUs, got %v", err)
	}
}

func TestUnwrapRejectsTamperedEnvelope(t *testing.T) {
	sender, recipient := makeParties(t)

	envelope, err := WrapMessage(sender, RumorOptions{
		Recipient: recipient.PublicHex(),
		Content:   "secret",
	}, time.Now().Unix())
	if err != nil {
		t.Fatalf("WrapMessage failed: %v", err)
	}

	envelope.CreatedAt++
	if _, err := Unwrap(envelope, recipient); !errors.Is(err, ErrOuterSignatureInvalid) {
		t.Errorf("Expected ErrOuterSignatureInvalid, got %v", err)
	}
}

func TestUnwrapRejectsForgedSeal(t *testing.T) {
	sender, recipient := makeParties(t)
	now := time.Now().Unix()

	rumor, err := CreateRumor(sender, RumorOptions{
		Recipient: recipient.PublicHex(),
		Content:   "secret",
	}, now)
	if err != nil {
		t.Fatalf("CreateRumor failed: %v", err)
	}
	seal, err := CreateSeal(sender, recipient.PublicHex(), rumor, now)
	if err != nil {
		t.Fatalf("CreateSeal failed: %v", err)
	}

	// An attacker re-claims the seal without being able to re-sign it.
	corrupted := "00"
	if seal.Sig[len(seal.Sig)-2:] == "00" {
		corrupted = "11"
	}
	seal.Sig = seal.Sig[:len(seal.Sig)-2] + corrupted

	envelope, err := CreateGiftWrap(recipient.PublicHex(), seal, now)
	if err != nil {
		t.Fatalf("CreateGiftWrap failed: %v", err)
	}

	if _, err := Unwrap(envelope, recipient); !errors.Is(err, ErrSealSignatureInvalid) {
		t.Errorf("Expected ErrSealSignatureInvalid, got %v", err)
	}
}

func TestUnwrapRejectsWrongSealKind(t *testing.T) {
	sender, recipient := makeParties(t)
	now := time.Now().Unix()

	rumor, err := CreateRumor(sender, RumorOptions{
		Recipient: recipient.PublicHex(),
		Content:   "secret",
	}, now)
	if err != nil {
		t.Fatalf("CreateRumor failed: %v", err)
	}

	// Wrap the rumor directly, skipping the seal layer entirely.
	envelope, err := CreateGiftWrap(recipient.PublicHex(), rumor, now)
	if err != nil {
		t.Fatalf("CreateGiftWrap failed: %v", err)
	}

	if _, err := Unwrap(envelope, recipient); !errors.Is(err, ErrMalformedSeal) {
		t.Errorf("Expected ErrMalformedSeal, got %v", err)
	}
}

func TestDecryptRejectsCorruptPayloads(t *testing.T) {
	alice, bob := makeParties(t)
	key, err := ConversationKey(alice, bob.PublicHex())
	if err != nil {
		t.Fatalf("ConversationKey failed: %v", err)
	}

	if _, err := decrypt(key, "@@not-base64@@"); err == nil {
		t.Errorf("Invalid base64 accepted")
	}
	if _, err := decrypt(key, "c2hvcnQ="); err == nil {
		t.Errorf("Truncated payload accepted")
	}

	ciphertext, err := encrypt(key, []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	otherKey, err := ConversationKey(alice, alice.PublicHex())
	if err != nil {
		t.Fatalf("ConversationKey failed: %v", err)
	}
	if _, err := decrypt(otherKey, ciphertext); err == nil {
		t.Errorf("Wrong key decrypted the payload")
	}
}

func TestRumorTimestampIsFuzzed(t *testing.T) {
	sender, recipient := makeParties(t)
	now := time.Now().Unix()

	rumor, err := CreateRumor(sender, RumorOptions{
		Recipient: recipient.PublicHex(),
		Content:   "hello",
	}, now)
	if err != nil {
		t.Fatalf("CreateRumor failed: %v", err)
	}

	if rumor.CreatedAt < now-event.TimestampRange || rumor.CreatedAt > now+event.TimestampRange {
		t.Errorf("Timestamp %d outside the allowed fuzz window around %d", rumor.CreatedAt, now)
	}
}
