package repository

import (
	"context"
	"errors"

	"github.com/mbeoliero/uq/internal/entity"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// MessageRepo is the repository for message operations
type MessageRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewMessageRepo creates a new MessageRepo
func NewMessageRepo(db *gorm.DB, rdb *redis.Client) *MessageRepo {
	return &MessageRepo{db: db, rdb: rdb}
}

// Create creates a new message
func (r *MessageRepo) Create(ctx context.Context, msg *entity.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetById gets message by Id
func (r *MessageRepo) GetById(ctx context.Context, id string) (*entity.Message, error) {
	var msg entity.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetByClientMsgId gets message by sender_id and client_msg_id (for idempotency check)
func (r *MessageRepo) GetByClientMsgId(ctx context.Context, senderId, clientMsgId string) (*entity.Message, error) {
	var msg entity.Message
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND client_msg_id = ?", senderId, clientMsgId).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// ConversationQuery selects a page of one conversation, newest first.
// Before == 0 means no upper bound. With BeforeId set the bound is the
// compound key (created_at, id), otherwise created_at alone.
type ConversationQuery struct {
	UserA    string
	UserB    string
	Before   int64
	BeforeId string
	Limit    int
}

func conversationScope(q *ConversationQuery) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			q.UserA, q.UserB, q.UserB, q.UserA)
		switch {
		case q.Before > 0 && q.BeforeId != "":
			db = db.Where("created_at < ? OR (created_at = ? AND id < ?)", q.Before, q.Before, q.BeforeId)
		case q.Before > 0:
			db = db.Where("created_at < ?", q.Before)
		}
		return db
	}
}

// ListConversation returns messages in both directions between two users, descending by (created_at, id)
func (r *MessageRepo) ListConversation(ctx context.Context, q *ConversationQuery) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := r.db.WithContext(ctx).
		Scopes(conversationScope(q)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(q.Limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead stamps read_at on unread messages from senderId to recipientId
func (r *MessageRepo) MarkRead(ctx context.Context, recipientId, senderId string, readAt int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND read_at IS NULL", recipientId, senderId).
		Update("read_at", readAt)
	return res.RowsAffected, res.Error
}

// CountUnreadBySender returns unread counts for recipientId keyed by sender
func (r *MessageRepo) CountUnreadBySender(ctx context.Context, recipientId string) (map[string]int64, error) {
	var rows []struct {
		SenderId string
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("recipient_id = ? AND read_at IS NULL", recipientId).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.SenderId] = row.Count
	}
	return counts, nil
}

// UpdateTranslation stores the translated text of a message
func (r *MessageRepo) UpdateTranslation(ctx context.Context, id, translated string) error {
	return r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("id = ?", id).
		Update("translated_content", translated).Error
}
