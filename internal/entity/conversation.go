/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import (
	"encoding/json"
	"sort"
)

// Conversation types. A dm has exactly two participants, anything larger is a
// group chat.
const (
	ConversationTypeDM    = "dm"
	ConversationTypeGroup = "group-chat"
)

// Represents one conversation thread, either a DM or a group chat.
// The ID is declared by the sender inside the message itself, so every device
// resolves the same thread without coordination.
type Conversation struct {
	ID           string `gorm:"primaryKey" json:"id"`            // Canonical conversation identifier
	Type         string `gorm:"not null" json:"type"`            // "dm" or "group-chat"
	Participants string `gorm:"not null" json:"participants"`    // JSON array of participant pubkeys, sorted
	CreatedBy    string `gorm:"not null;index" json:"createdBy"` // Pubkey of whoever started the conversation
	CreatedAt    int64  `gorm:"not null" json:"createdAt"`       // Protocol time (unix seconds) of creation

	LastMessageAt      int64  `json:"lastMessageAt"`      // Protocol time of the newest reconciled message
	LastMessagePreview string `json:"lastMessagePreview"` // Truncated content of that message
	UnreadCount        int    `json:"unreadCount"`        // Messages reconciled since the local user last read the thread

	Pinned   bool `gorm:"default:false" json:"pinned"`
	Muted    bool `gorm:"default:false" json:"muted"`
	Archived bool `gorm:"default:false" json:"archived"`
}

// ParticipantList decodes the participant set. A broken column yields nil.
func (c *Conversation) ParticipantList() []string {
	var participants []string
	if err := json.Unmarshal([]byte(c.Participants), &participants); err != nil {
		return nil
	}
	return participants
}

// SetParticipants stores the given pubkeys as a deduplicated, sorted set.
func (c *Conversation) SetParticipants(pubkeys []string) {
	seen := make(map[string]struct{}, len(pubkeys))
	unique := make([]string, 0, len(pubkeys))
	for _, pubkey := range pubkeys {
		if pubkey == "" {
			continue
		}
		if _, ok := seen[pubkey]; ok {
			continue
		}
		seen[pubkey] = struct{}{}
		unique = append(unique, pubkey)
	}
	sort.Strings(unique)

	encoded, err := json.Marshal(unique)
	if err != nil {
		return
	}
	c.Participants = string(encoded)
}

// HasParticipant checks set membership.
func (c *Conversation) HasParticipant(pubkey string) bool {
	for _, participant := range c.ParticipantList() {
		if participant == pubkey {
			return true
		}
	}
	return false
}
