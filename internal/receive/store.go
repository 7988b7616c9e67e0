/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package receive

import "courier/internal/entity"

// Store is the slice of the storage layer the receive pipeline consumes.
// Reads return (nil, nil) when the record is absent. CreateConversationAtomic
// must be all-or-nothing and must converge concurrent creators of the same id
// onto a single row; InsertMessageIfAbsent must treat duplicate ids as a
// successful no-op.
type Store interface {
	GetConversation(id string) (*entity.Conversation, error)
	FindDirectConversation(a, b string) (*entity.Conversation, error)
	CreateConversationAtomic(conversation *entity.Conversation, members []*entity.ConversationMember) (*entity.Conversation, error)
	InsertMessageIfAbsent(message *entity.ConversationMessage) (bool, error)
	UpdateConversationSummary(id string, lastMessageAt int64, preview string, incrementUnread bool) error
}
