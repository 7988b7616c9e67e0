/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package repository

import (
	"errors"

	"courier/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// This repository stores reconciled messages. Messages are keyed by their
// envelope id, so the insert is naturally idempotent: re-delivery of an
// already-stored envelope is a no-op, not an error.
type MessageRepository interface {
	InsertIfAbsent(message *entity.ConversationMessage) (bool, error) // Inserts the message, reporting whether a new row was written
	Get(conversationID string) ([]*entity.ConversationMessage, error) // Retrieves the messages of a conversation, oldest first
	GetByID(id string) (*entity.ConversationMessage, error)           // Retrieves a single message by envelope id
	Count(conversationID string) (int64, error)                       // Counts the messages of a conversation
}

// Implementation of the repository using a SQLite DB
type SQLiteMessageRepository struct {
	db *gorm.DB
}

func NewSQLiteMessageRepository(db *gorm.DB) MessageRepository {
	return &SQLiteMessageRepository{db}
}

func (repo *SQLiteMessageRepository) InsertIfAbsent(message *entity.ConversationMessage) (bool, error) {
	res := repo.db.Clauses(clause.OnConflict{DoNothing: true}).Create(message)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (repo *SQLiteMessageRepository) Get(conversationID string) ([]*entity.ConversationMessage, error) {
	var messages []*entity.ConversationMessage
	err := repo.db.Where("conversation_id = ?", conversationID).Order("timestamp ASC").Find(&messages).Error
	return messages, err
}

func (repo *SQLiteMessageRepository) GetByID(id string) (*entity.ConversationMessage, error) {
	var message entity.ConversationMessage
	err := repo.db.First(&message, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (repo *SQLiteMessageRepository) Count(conversationID string) (int64, error) {
	var count int64
	err := repo.db.Model(&entity.ConversationMessage{}).Where("conversation_id = ?", conversationID).Count(&count).Error
	return count, err
}
