package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/ffm-club/internal/db"
)

// ConversationRepository provides data access for conversations and their messages.
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// CreateIfAbsent inserts c unless a conversation with the same id exists.
// Concurrent callers with the same deterministic id converge on one row.
func (r *ConversationRepository) CreateIfAbsent(ctx context.Context, c *db.Conversation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(c).Error
}

// Get loads a conversation. Returns gorm.ErrRecordNotFound when absent.
func (r *ConversationRepository) Get(ctx context.Context, id string) (*db.Conversation, error) {
	var c db.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListForUser returns the user's conversations, most recent message first.
// Conversations that never had a message sort last.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]db.Conversation, error) {
	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("CASE WHEN last_message_at IS NULL THEN 1 ELSE 0 END").
		Order("last_message_at DESC").
		Order("id ASC").
		Find(&convs).Error
	return convs, err
}

// AppendMessage stores m and denormalizes it onto the conversation in one
// transaction.
func (r *ConversationRepository) AppendMessage(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&db.Conversation{}).
			Where("id = ?", m.ConversationID).
			UpdateColumns(map[string]any{
				"last_message":    m.Text,
				"last_message_at": m.SentAt,
			}).Error
	})
}

// Messages returns the full sequence ordered by sent_at, then id.
func (r *ConversationRepository) Messages(ctx context.Context, conversationID string) ([]db.Message, error) {
	msgs := []db.Message{}
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// MarkRead flips every unread message addressed to userID. Only is_read and
// read_at change. Returns the number of messages flipped.
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND is_read = ?", conversationID, userID, false).
		UpdateColumns(map[string]any{
			"is_read": true,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

// CountUnread sums unread messages addressed to userID across the
// conversations they take part in.
func (r *ConversationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	convs := r.db.
		Model(&db.Conversation{}).
		Select("id").
		Where("participant_a = ? OR participant_b = ?", userID, userID)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("recipient_id = ? AND is_read = ? AND conversation_id IN (?)", userID, false, convs).
		Count(&count).Error
	return count, err
}
