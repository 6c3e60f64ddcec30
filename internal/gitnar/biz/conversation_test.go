package biz

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/gitnar/internal/model"
	apierrors "github.com/kart-io/gitnar/pkg/errors"
)

func TestAppendExchangeRoundTrip(t *testing.T) {
	factory := newBizTestFactory(t)
	sessions := NewSessions(factory.Conversations())
	ctx := context.Background()

	require.NoError(t, sessions.AppendExchange(ctx, "s1", model.ScopeRepo, "demo", "q1", "a1"))
	require.NoError(t, sessions.AppendExchange(ctx, "s1", model.ScopeRepo, "demo", "q2", "a2"))

	msgs, err := sessions.Recent(ctx, "s1", 4)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"q1", "a1", "q2", "a2"}, []string{
		msgs[0].Content, msgs[1].Content, msgs[2].Content, msgs[3].Content,
	})
	assert.Equal(t, model.MessageRoleUser, msgs[0].Role)
	assert.Equal(t, model.MessageRoleAssistant, msgs[1].Role)

	msgs, err = sessions.Recent(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "q2", msgs[0].Content)
	assert.Equal(t, "a2", msgs[1].Content)
}

func TestScopePinnedOnFirstWrite(t *testing.T) {
	factory := newBizTestFactory(t)
	sessions := NewSessions(factory.Conversations())
	ctx := context.Background()

	require.NoError(t, sessions.AppendExchange(ctx, "s1", model.ScopeRepo, "demo", "q", "a"))

	// 同会话换作用域被拒绝
	err := sessions.AppendExchange(ctx, "s1", model.ScopeGroup, "backend", "q", "a")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrQAScopeMismatch.Code))

	err = sessions.AppendExchange(ctx, "s1", model.ScopeRepo, "other-repo", "q", "a")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrQAScopeMismatch.Code))

	// CheckScope 同样拒绝
	err = sessions.CheckScope(ctx, "s1", model.ScopeGroup, "backend")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrQAScopeMismatch.Code))

	// 未知会话视为可用
	assert.NoError(t, sessions.CheckScope(ctx, "unseen", model.ScopeGroup, "backend"))
}

func TestRecentUnknownSessionIsEmpty(t *testing.T) {
	factory := newBizTestFactory(t)
	sessions := NewSessions(factory.Conversations())

	msgs, err := sessions.Recent(context.Background(), "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestConcurrentAppendsKeepSequenceIntact(t *testing.T) {
	factory := newBizTestFactory(t)
	sessions := NewSessions(factory.Conversations())
	ctx := context.Background()

	const rounds = 8
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sessions.AppendExchange(ctx, "s1", model.ScopeRepo, "demo", "q", "a")
		}()
	}
	wg.Wait()

	msgs, err := sessions.Recent(ctx, "s1", rounds*2)
	require.NoError(t, err)
	require.Len(t, msgs, rounds*2)

	// 序号严格递增且问答成对
	for i, msg := range msgs {
		assert.Equal(t, i+1, msg.Seq)
		if i%2 == 0 {
			assert.Equal(t, model.MessageRoleUser, msg.Role)
		} else {
			assert.Equal(t, model.MessageRoleAssistant, msg.Role)
		}
	}
}

func TestNewSessionID(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
