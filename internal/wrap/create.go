/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package wrap

import (
	"encoding/json"

	"courier/internal/event"
	"courier/internal/keys"
)

// RumorOptions describes the message draft to wrap.
type RumorOptions struct {
	Recipient         string   // recipient identity, becomes the first p tag
	ConversationID    string   // canonical conversation identifier
	Content           string   // plaintext body
	ReplyTo           string   // referenced event id, empty for none
	ExtraParticipants []string // additional p tags for multi-party conversations
}

// CreateRumor builds the unsigned inner draft. Rumors are never published on
// their own, so they deliberately carry no signature.
func CreateRumor(sender *keys.Keypair, opts RumorOptions, createdAt int64) (*event.Event, error) {
	tags := [][]string{{event.TagRecipient, opts.Recipient}}
	for _, participant := range opts.ExtraParticipants {
		tags = append(tags, []string{event.TagRecipient, participant})
	}
	if opts.ConversationID != "" {
		tags = append(tags, []string{event.TagConversation, opts.ConversationID})
	}
	if opts.ReplyTo != "" {
		tags = append(tags, []string{event.TagEvent, opts.ReplyTo, "", event.MarkerReply})
	}

	rumor := &event.Event{
		Pubkey:    sender.PublicHex(),
		CreatedAt: event.RandomizeTimestamp(createdAt, event.TimestampRange),
		Kind:      event.KindRumor,
		Tags:      tags,
		Content:   opts.Content,
	}

	id, err := event.ComputeID(rumor)
	if err != nil {
		return nil, err
	}
	rumor.ID = id
	return rumor, nil
}

// CreateSeal encrypts the rumor towards the recipient and signs the result
// with the sender's real identity key. The seal is what proves who wrote the
// message.
func CreateSeal(sender *keys.Keypair, recipient string, rumor *event.Event, createdAt int64) (*event.Event, error) {
	rumorJSON, err := json.Marshal(rumor)
	if err != nil {
		return nil, err
	}

	key, err := ConversationKey(sender, recipient)
	if err != nil {
		return nil, err
	}
	ciphertext, err := encrypt(key, rumorJSON)
	if err != nil {
		return nil, err
	}

	seal := &event.Event{
		Pubkey:    sender.PublicHex(),
		CreatedAt: event.RandomizeTimestamp(createdAt, event.TimestampRange),
		Kind:      event.KindSeal,
		Tags:      [][]string{},
		Content:   ciphertext,
	}
	if err := event.Sign(sender.Private(), seal); err != nil {
		return nil, err
	}
	return seal, nil
}

// CreateGiftWrap encrypts the seal towards the recipient under a fresh
// throwaway keypair and signs with it, hiding the sender from the relay.
func CreateGiftWrap(recipient string, seal *event.Event, createdAt int64) (*event.Event, error) {
	ephemeral, err := keys.Generate()
	if err != nil {
		return nil, err
	}

	sealJSON, err := json.Marshal(seal)
	if err != nil {
		return nil, err
	}
	key, err := ConversationKey(ephemeral, recipient)
	if err != nil {
		return nil, err
	}
	ciphertext, err := encrypt(key, sealJSON)
	if err != nil {
		return nil, err
	}

	giftWrap := &event.Event{
		Pubkey:    ephemeral.PublicHex(),
		CreatedAt: event.RandomizeTimestamp(createdAt, event.TimestampRange),
		Kind:      event.KindGiftWrap,
		Tags:      [][]string{{event.TagRecipient, recipient}},
		Content:   ciphertext,
	}
	if err := event.Sign(ephemeral.Private(), giftWrap); err != nil {
		return nil, err
	}
	return giftWrap, nil
}

// WrapMessage runs the full send-side chain: rumor, seal, gift wrap.
func WrapMessage(sender *keys.Keypair, opts RumorOptions, createdAt int64) (*event.Event, error) {
	rumor, err := CreateRumor(sender, opts, createdAt)
	if err != nil {
		return nil, err
	}
	seal, err := CreateSeal(sender, opts.Recipient, rumor, createdAt)
	if err != nil {
		return nil, err
	}
	return CreateGiftWrap(opts.Recipient, seal, createdAt)
}
