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

// This repository manipulates conversations and their memberships.
// Reads that find nothing return (nil, nil) so callers can distinguish
// "absent" from an actual storage failure.
type ConversationRepository interface {
	Get(id string) (*entity.Conversation, error)                                                                // Retrieves one conversation by id
	List() ([]*entity.Conversation, error)                                                                      // Retrieves every conversation, most recent activity first
	FindDirect(a, b string) (*entity.Conversation, error)                                                       // Finds the two-participant DM between a and b
	CreateAtomic(conversation *entity.Conversation, members []*entity.ConversationMember) (*entity.Conversation, error) // Creates conversation and members all-or-nothing
	GetMembers(id string) ([]*entity.ConversationMember, error)                                                 // Retrieves the membership rows of a conversation
	UpdateSummary(id string, lastMessageAt int64, preview string, incrementUnread bool) error                   // Updates the summary fields under a row lock
	MarkRead(id, pubkey string, at int64) error                                                                 // Resets the unread counter and bumps the member's read marker
	SetFlags(id string, pinned, muted, archived bool) error                                                     // Updates the user-facing flags
}

// Implementation of the repository using a SQLite DB
type SQLiteConversationRepository struct {
	db *gorm.DB
}

func NewSQLiteConversationRepository(db *gorm.DB) ConversationRepository {
	return &SQLiteConversationRepository{db}
}

func (repo *SQLiteConversationRepository) Get(id string) (*entity.Conversation, error) {
	var conversation entity.Conversation
	err := repo.db.First(&conversation, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (repo *SQLiteConversationRepository) List() ([]*entity.Conversation, error) {
	var conversations []*entity.Conversation
	err := repo.db.Order("last_message_at DESC").Find(&conversations).Error
	return conversations, err
}

func (repo *SQLiteConversationRepository) FindDirect(a, b string) (*entity.Conversation, error) {

	// Participants are stored as a sorted JSON array, so the two-member DM
	// between a and b has exactly one possible column value.
	probe := entity.Conversation{}
	probe.SetParticipants([]string{a, b})

	var conversation entity.Conversation
	err := repo.db.
		Where("type = ? AND participants = ?", entity.ConversationTypeDM, probe.Participants).
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (repo *SQLiteConversationRepository) CreateAtomic(conversation *entity.Conversation, members []*entity.ConversationMember) (*entity.Conversation, error) {

	// Two envelopes for the same brand-new conversation may race here.
	// The insert is insert-if-absent: the loser of the race reads back the
	// winner's row instead of failing, so both envelopes resolve to a single
	// conversation.
	winner := conversation
	err := repo.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(conversation)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var existing entity.Conversation
			if err := tx.First(&existing, "id = ?", conversation.ID).Error; err != nil {
				return err
			}
			winner = &existing
			return nil
		}

		if len(members) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return winner, nil
}

func (repo *SQLiteConversationRepository) GetMembers(id string) ([]*entity.ConversationMember, error) {
	var members []*entity.ConversationMember
	err := repo.db.Where("conversation_id = ?", id).Order("pubkey ASC").Find(&members).Error
	return members, err
}

func (repo *SQLiteConversationRepository) UpdateSummary(id string, lastMessageAt int64, preview string, incrementUnread bool) error {

	// Read-modify-write on the summary fields is a lost-update hazard when
	// two messages for the same conversation land together, hence the row lock.
	return repo.db.Transaction(func(tx *gorm.DB) error {
		var conversation entity.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&conversation, "id = ?", id).Error; err != nil {
			return err
		}

		if lastMessageAt >= conversation.LastMessageAt {
			conversation.LastMessageAt = lastMessageAt
			conversation.LastMessagePreview = preview
		}
		if incrementUnread {
			conversation.UnreadCount++
		}

		return tx.Save(&conversation).Error
	})
}

func (repo *SQLiteConversationRepository) MarkRead(id, pubkey string, at int64) error {
	return repo.db.Transaction(func(tx *gorm.DB) error {
		var conversation entity.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&conversation, "id = ?", id).Error; err != nil {
			return err
		}
		conversation.UnreadCount = 0
		if err := tx.Save(&conversation).Error; err != nil {
			return err
		}

		return tx.Model(&entity.ConversationMember{}).
			Where("conversation_id = ? AND pubkey = ?", id, pubkey).
			Update("last_read_at", at).Error
	})
}

func (repo *SQLiteConversationRepository) SetFlags(id string, pinned, muted, archived bool) error {
	return repo.db.Model(&entity.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{"pinned": pinned, "muted": muted, "archived": archived}).Error
}
