/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package receive

import (
	"errors"
	"time"

	"courier/internal/entity"
	"courier/internal/event"
	"courier/internal/nlog"
)

// Routing failures. Both mean the message is dropped for this device; neither
// is reported back to the sender.
var (
	ErrNotAddressedToLocalUser = errors.New("rumor not addressed to local user")
	ErrNoConversationContext   = errors.New("no conversation context for legacy message")
)

// Resolver maps a verified rumor onto a conversation, creating conversation
// and membership rows on first contact.
type Resolver struct {
	store  Store
	logger nlog.Logger
}

func NewResolver(store Store, logger nlog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the conversation the rumor belongs to.
//
// An existing conversation is returned untouched: membership gaps are a data
// quality issue for a separate reconciliation, not something to infer from
// message traffic. Only the create path derives participants from the rumor.
func (r *Resolver) Resolve(rumor *event.Event, senderPubkey, localIdentity string) (*entity.Conversation, error) {
	if !rumor.HasRecipient(localIdentity) {
		return nil, ErrNotAddressedToLocalUser
	}

	conversationID, ok := rumor.FirstTag(event.TagConversation)
	if !ok {
		// Legacy senders declare no conversation id. The only safe routing is
		// an already-known DM with that sender; without one the message
		// cannot be placed and is dropped.
		existing, err := r.store.FindDirectConversation(senderPubkey, localIdentity)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrNoConversationContext
		}
		r.logger.Logf("Routed legacy message from %s into existing DM %s", senderPubkey, existing.ID)
		return existing, nil
	}

	existing, err := r.store.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	return r.create(conversationID, rumor, senderPubkey, localIdentity)
}

func (r *Resolver) create(conversationID string, rumor *event.Event, senderPubkey, localIdentity string) (*entity.Conversation, error) {
	participants := append([]string{senderPubkey, localIdentity}, rumor.TagValues(event.TagRecipient)...)

	conversation := &entity.Conversation{
		ID:        conversationID,
		CreatedBy: senderPubkey,
		CreatedAt: rumor.CreatedAt,
	}
	conversation.SetParticipants(participants)

	if len(conversation.ParticipantList()) == 2 {
		conversation.Type = entity.ConversationTypeDM
	} else {
		conversation.Type = entity.ConversationTypeGroup
	}

	now := time.Now().Unix()
	var members []*entity.ConversationMember
	for _, participant := range conversation.ParticipantList() {
		member := &entity.ConversationMember{
			ConversationID: conversationID,
			Pubkey:         participant,
			Role:           entity.RoleMember,
			JoinedAt:       rumor.CreatedAt,
			// Everyone but us already knows about this conversation, we are
			// the one catching up.
			LastReadAt: now,
		}
		if participant == senderPubkey {
			member.Role = entity.RoleAdmin
		}
		if participant == localIdentity {
			member.LastReadAt = 0
		}
		members = append(members, member)
	}

	created, err := r.store.CreateConversationAtomic(conversation, members)
	if err != nil {
		return nil, err
	}
	r.logger.Logf("Created conversation %s (%s) with %d participants", created.ID, created.Type, len(created.ParticipantList()))
	return created, nil
}
