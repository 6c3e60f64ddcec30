package biz

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/kart-io/gitnar/internal/gitnar/store"
	"github.com/kart-io/gitnar/internal/model"
	apierrors "github.com/kart-io/gitnar/pkg/errors"
)

// sessionStripes 会话锁分片数。同一会话的追加串行执行，
// 不同会话互不阻塞。
const sessionStripes = 64

// Sessions 负责会话线程管理。
type Sessions struct {
	store store.ConversationStore
	locks [sessionStripes]sync.Mutex
}

// NewSessions 创建会话管理器。
func NewSessions(convStore store.ConversationStore) *Sessions {
	return &Sessions{store: convStore}
}

// NewSessionID 生成新的会话标识。
func NewSessionID() string {
	return strings.ToLower(ulid.Make().String())
}

func (s *Sessions) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%sessionStripes]
}

// ensureScope 获取或创建会话。首次写入时绑定作用域，
// 之后用不同作用域复用同一会话会被拒绝。
func (s *Sessions) ensureScope(ctx context.Context, sessionID, scope, scopeID string) (*model.Conversation, error) {
	conv, err := s.store.Get(ctx, sessionID)
	switch {
	case err == nil:
		if conv.Scope != scope || conv.ScopeID != scopeID {
			return nil, apierrors.ErrQAScopeMismatch.WithMessagef(
				"session %s is bound to %s/%s, got %s/%s",
				sessionID, conv.Scope, conv.ScopeID, scope, scopeID)
		}
		return conv, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		conv = &model.Conversation{ID: sessionID, Scope: scope, ScopeID: scopeID}
		if err := s.store.Create(ctx, conv); err != nil {
			return nil, apierrors.ErrQADatabase.WithCause(err)
		}
		return conv, nil
	default:
		return nil, apierrors.ErrQADatabase.WithCause(err)
	}
}

// CheckScope 校验会话可用于给定作用域。会话不存在视为可用，
// 因为首次追加才会绑定作用域。
func (s *Sessions) CheckScope(ctx context.Context, sessionID, scope, scopeID string) error {
	conv, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apierrors.ErrQADatabase.WithCause(err)
	}
	if conv.Scope != scope || conv.ScopeID != scopeID {
		return apierrors.ErrQAScopeMismatch.WithMessagef(
			"session %s is bound to %s/%s, got %s/%s",
			sessionID, conv.Scope, conv.ScopeID, scope, scopeID)
	}
	return nil
}

// AppendExchange 追加一组完整的问答轮次。同一会话的并发调用
// 串行执行，序号严格递增。
func (s *Sessions) AppendExchange(ctx context.Context, sessionID, scope, scopeID, question, answer string) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.ensureScope(ctx, sessionID, scope, scopeID); err != nil {
		return err
	}

	if _, err := s.store.AppendMessage(ctx, sessionID, model.MessageRoleUser, question); err != nil {
		return apierrors.ErrQADatabase.WithCause(err)
	}
	if _, err := s.store.AppendMessage(ctx, sessionID, model.MessageRoleAssistant, answer); err != nil {
		return apierrors.ErrQADatabase.WithCause(err)
	}
	return nil
}

// Recent 返回最近 limit 条轮次，时间正序。未知会话返回空。
func (s *Sessions) Recent(ctx context.Context, sessionID string, limit int) ([]*model.ConversationMessage, error) {
	msgs, err := s.store.RecentMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, apierrors.ErrQADatabase.WithCause(err)
	}
	return msgs, nil
}
