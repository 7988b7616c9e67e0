/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

// Membership roles inside a conversation.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// One row per participant per conversation. Created together with the
// conversation itself, never partially.
type ConversationMember struct {
	ConversationID string `gorm:"primaryKey" json:"conversationId"` // Conversation this membership belongs to
	Pubkey         string `gorm:"primaryKey" json:"pubkey"`         // Identity of the member
	Role           string `gorm:"not null" json:"role"`             // "admin" for the creator, "member" otherwise
	JoinedAt       int64  `gorm:"not null" json:"joinedAt"`         // Protocol time the membership was recorded
	LastReadAt     int64  `json:"lastReadAt"`                       // Protocol time up to which this member has read the thread
}
