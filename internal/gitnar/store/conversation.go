package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/gitnar/internal/model"
)

type conversations struct {
	db *gorm.DB
}

func newConversations(db *gorm.DB) *conversations {
	return &conversations{db}
}

// Create creates a new conversation.
func (c *conversations) Create(ctx context.Context, conv *model.Conversation) error {
	return c.db.WithContext(ctx).Create(conv).Error
}

// Get retrieves a conversation by ID.
func (c *conversations) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// Delete deletes a conversation and its messages.
func (c *conversations) Delete(ctx context.Context, id string) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&model.ConversationMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Conversation{}).Error
	})
}

// List lists conversations, optionally filtered by scope.
func (c *conversations) List(ctx context.Context, scope, scopeID string, offset, limit int) (int64, []*model.Conversation, error) {
	query := c.db.WithContext(ctx).Model(&model.Conversation{})
	if scope != "" {
		query = query.Where("scope = ?", scope)
	}
	if scopeID != "" {
		query = query.Where("scope_id = ?", scopeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, nil, err
	}

	var items []*model.Conversation
	if err := query.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return count, items, nil
}

// AppendMessage appends a turn with the next sequence number.
func (c *conversations) AppendMessage(ctx context.Context, conversationID, role, content string) (*model.ConversationMessage, error) {
	msg := &model.ConversationMessage{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last model.ConversationMessage
		err := tx.Where("conversation_id = ?", conversationID).
			Order("seq DESC").Limit(1).First(&last).Error
		switch {
		case err == nil:
			msg.Seq = last.Seq + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			msg.Seq = 1
		default:
			return err
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		// 刷新会话的 updated_at，用于列表排序
		return tx.Model(&model.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// RecentMessages returns the most recent limit messages ordered oldest-first.
func (c *conversations) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*model.ConversationMessage, error) {
	if limit < 1 {
		return nil, nil
	}

	var msgs []*model.ConversationMessage
	err := c.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq DESC").Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	// 倒序查询取最近 N 条，再反转为时间正序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}
