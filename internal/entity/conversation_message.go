/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

// Represents a message reconciled into a conversation.
// The primary key is the envelope id, which is globally unique, so replayed
// or re-delivered envelopes collapse into a single row.
type ConversationMessage struct {
	ID             string `gorm:"primaryKey" json:"id"`                 // Envelope id of the wrap that delivered this message
	ConversationID string `gorm:"not null;index" json:"conversationId"` // Thread this message belongs to
	From           string `gorm:"not null;index" json:"from"`           // Verified sender identity (from the seal, never the wrap)
	Content        string `gorm:"not null" json:"content"`              // Plaintext body
	Timestamp      int64  `gorm:"not null;index" json:"timestamp"`      // Creation time declared inside the rumor (protocol time)
	ReplyTo        string `json:"replyTo"`                              // Envelope id of the message this one replies to, if any
	Reactions      string `json:"reactions"`                            // JSON map of emoji to reacting pubkeys, managed outside the receive path
	IsEdited       bool   `gorm:"default:false" json:"isEdited"`        // Set by the separate edit flow, never by reception
}
