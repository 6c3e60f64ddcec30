package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/gitnar/internal/model"
	apierrors "github.com/kart-io/gitnar/pkg/errors"
)

func makeHit(repoID, path string, score float64, content string) *model.Hit {
	return &model.Hit{
		Fragment: model.Fragment{
			ID:        model.FragmentID(repoID, path, 1, 10),
			RepoID:    repoID,
			Path:      path,
			StartLine: 1,
			EndLine:   10,
			Content:   content,
		},
		Score: score,
	}
}

func TestBuildRendersSectionsInOrder(t *testing.T) {
	b := NewPromptBuilder(&PromptConfig{Budget: 0})

	result, err := b.Build(&PromptInput{
		ScopeLabel: "demo",
		Hits: []*model.Hit{
			makeHit("demo", "a.go", 0.9, "func A() {}"),
			makeHit("demo", "b.go", 0.5, "func B() {}"),
		},
		History: []*model.ConversationMessage{
			{Role: model.MessageRoleUser, Content: "earlier question"},
			{Role: model.MessageRoleAssistant, Content: "earlier answer"},
		},
		Question: "How does A work?",
	})
	require.NoError(t, err)

	prompt := result.Prompt
	headerIdx := strings.Index(prompt, `repository "demo"`)
	frag1Idx := strings.Index(prompt, "[FRAGMENT 1] file=a.go")
	frag2Idx := strings.Index(prompt, "[FRAGMENT 2] file=b.go")
	historyIdx := strings.Index(prompt, "Conversation so far:")
	userIdx := strings.Index(prompt, "user: earlier question")
	assistantIdx := strings.Index(prompt, "assistant: earlier answer")
	questionIdx := strings.Index(prompt, "Question: How does A work?")

	for _, idx := range []int{headerIdx, frag1Idx, frag2Idx, historyIdx, userIdx, assistantIdx, questionIdx} {
		require.GreaterOrEqual(t, idx, 0)
	}
	assert.Less(t, headerIdx, frag1Idx)
	assert.Less(t, frag1Idx, frag2Idx)
	assert.Less(t, frag2Idx, historyIdx)
	assert.Less(t, userIdx, assistantIdx)
	assert.Less(t, assistantIdx, questionIdx)

	assert.Len(t, result.Kept, 2)
}

func TestBuildLabelsRepoInGroupMode(t *testing.T) {
	b := NewPromptBuilder(&PromptConfig{Budget: 0})

	result, err := b.Build(&PromptInput{
		ScopeLabel: "backend",
		MultiRepo:  true,
		Hits:       []*model.Hit{makeHit("svc-a", "main.go", 0.8, "package main")},
		Question:   "q",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Prompt, `repository group "backend"`)
	assert.Contains(t, result.Prompt, "repo=svc-a")
}

func TestBuildDropsLowestSimilarityFragmentsFirst(t *testing.T) {
	big := strings.Repeat("x", 300)
	hits := []*model.Hit{
		makeHit("demo", "high.go", 0.9, big),
		makeHit("demo", "mid.go", 0.6, big),
		makeHit("demo", "low.go", 0.3, big),
	}

	// 预算只够放下一个片段
	b := NewPromptBuilder(&PromptConfig{Budget: 600})

	result, err := b.Build(&PromptInput{
		ScopeLabel: "demo",
		Hits:       hits,
		Question:   "q",
	})
	require.NoError(t, err)

	require.Len(t, result.Kept, 1)
	assert.Equal(t, "high.go", result.Kept[0].Fragment.Path)
	assert.Contains(t, result.Prompt, "high.go")
	assert.NotContains(t, result.Prompt, "mid.go")
	assert.NotContains(t, result.Prompt, "low.go")
	// 片段整块丢弃，留下的内容完整
	assert.Contains(t, result.Prompt, big)
}

func TestBuildKeepsQuestionAndMostRecentTurn(t *testing.T) {
	long := strings.Repeat("h", 200)
	history := []*model.ConversationMessage{
		{Role: model.MessageRoleUser, Content: long + "-old"},
		{Role: model.MessageRoleAssistant, Content: long + "-older-answer"},
		{Role: model.MessageRoleUser, Content: "latest question"},
	}

	b := NewPromptBuilder(&PromptConfig{Budget: 400})

	result, err := b.Build(&PromptInput{
		ScopeLabel: "demo",
		History:    history,
		Question:   "q",
	})
	require.NoError(t, err)

	assert.Contains(t, result.Prompt, "Question: q")
	assert.Contains(t, result.Prompt, "latest question")
	assert.NotContains(t, result.Prompt, "-old\n")
}

func TestBuildContextTooLargeOnlyForOversizedQuestion(t *testing.T) {
	b := NewPromptBuilder(&PromptConfig{Budget: 50})

	_, err := b.Build(&PromptInput{
		ScopeLabel: "demo",
		Question:   strings.Repeat("q", 100),
	})
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrQAContextTooLarge.Code))

	// 问题本身放得下就不报错，哪怕别的都得裁掉
	result, err := b.Build(&PromptInput{
		ScopeLabel: "demo",
		Hits:       []*model.Hit{makeHit("demo", "a.go", 0.9, strings.Repeat("x", 500))},
		Question:   "short",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Kept)
	assert.Contains(t, result.Prompt, "Question: short")
}

func TestBuildDeterministic(t *testing.T) {
	b := NewPromptBuilder(&PromptConfig{Budget: 0})
	input := &PromptInput{
		ScopeLabel: "demo",
		Hits:       []*model.Hit{makeHit("demo", "a.go", 0.9, "text")},
		Question:   "q",
	}

	first, err := b.Build(input)
	require.NoError(t, err)
	second, err := b.Build(input)
	require.NoError(t, err)
	assert.Equal(t, first.Prompt, second.Prompt)
}
