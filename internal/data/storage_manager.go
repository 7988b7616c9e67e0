/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import (
	"courier/internal/entity"
	"courier/internal/repository"

	"gorm.io/gorm"
)

// Storage manager gathers all the repositories needed by the receive pipeline
// and the local API in a single container.
type StorageManager struct {
	db *gorm.DB // Under the hood we use the SQLite implementation

	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
}

func NewStorageManager(db *gorm.DB) (*StorageManager, error) {
	if err := db.AutoMigrate(
		&entity.Conversation{},
		&entity.ConversationMember{},
		&entity.ConversationMessage{},
	); err != nil {
		return nil, err
	}

	return &StorageManager{
		db:               db,
		conversationRepo: repository.NewSQLiteConversationRepository(db),
		messageRepo:      repository.NewSQLiteMessageRepository(db),
	}, nil
}

func (s *StorageManager) GetConversationRepository() repository.ConversationRepository {
	return s.conversationRepo
}

func (s *StorageManager) GetMessageRepository() repository.MessageRepository {
	return s.messageRepo
}

// The methods below satisfy the store interface the receive pipeline consumes.

func (s *StorageManager) GetConversation(id string) (*entity.Conversation, error) {
	return s.conversationRepo.Get(id)
}

func (s *StorageManager) FindDirectConversation(a, b string) (*entity.Conversation, error) {
	return s.conversationRepo.FindDirect(a, b)
}

func (s *StorageManager) CreateConversationAtomic(conversation *entity.Conversation, members []*entity.ConversationMember) (*entity.Conversation, error) {
	return s.conversationRepo.CreateAtomic(conversation, members)
}

func (s *StorageManager) InsertMessageIfAbsent(message *entity.ConversationMessage) (bool, error) {
	return s.messageRepo.InsertIfAbsent(message)
}

func (s *StorageManager) UpdateConversationSummary(id string, lastMessageAt int64, preview string, incrementUnread bool) error {
	return s.conversationRepo.UpdateSummary(id, lastMessageAt, preview, incrementUnread)
}
