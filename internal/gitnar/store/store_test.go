package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/gitnar/internal/model"
	sqliteopts "github.com/kart-io/gitnar/pkg/options/sqlite"
)

func newTestFactory(t *testing.T) Factory {
	t.Helper()

	opts := sqliteopts.NewOptions()
	opts.Path = ":memory:"
	opts.LogLevel = 1

	factory, err := NewFactory(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	return factory
}

func TestRepoCRUD(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	repo := &model.Repo{ID: "demo", Name: "demo", URL: "https://example.com/demo.git", Status: model.RepoStatusPending}
	require.NoError(t, f.Repos().Create(ctx, repo))

	got, err := f.Repos().Get(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)

	require.NoError(t, f.Repos().UpdateStatus(ctx, "demo", model.RepoStatusReady, ""))
	got, err = f.Repos().Get(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, model.RepoStatusReady, got.Status)

	count, items, err := f.Repos().List(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Len(t, items, 1)

	require.NoError(t, f.Repos().Delete(ctx, "demo"))
	_, err = f.Repos().Get(ctx, "demo")
	assert.Error(t, err)
}

func TestGroupStoresMemberIDs(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	group := &model.RepoGroup{
		ID:      "backend",
		Name:    "Backend services",
		RepoIDs: model.StringSet{"svc-a", "svc-b"},
	}
	require.NoError(t, f.Groups().Create(ctx, group))

	got, err := f.Groups().Get(ctx, "backend")
	require.NoError(t, err)
	assert.Equal(t, model.StringSet{"svc-a", "svc-b"}, got.RepoIDs)
	assert.True(t, got.RepoIDs.Contains("svc-a"))
	assert.False(t, got.RepoIDs.Contains("svc-c"))
}

func TestReplaceForRepoIsWholesale(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	first := []*model.Fragment{
		{ID: model.FragmentID("r1", "a.go", 1, 10), RepoID: "r1", Path: "a.go", StartLine: 1, EndLine: 10, Content: "package a"},
		{ID: model.FragmentID("r1", "b.go", 1, 5), RepoID: "r1", Path: "b.go", StartLine: 1, EndLine: 5, Content: "package b"},
	}
	require.NoError(t, f.Fragments().ReplaceForRepo(ctx, "r1", first))

	count, err := f.Fragments().CountByRepo(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	second := []*model.Fragment{
		{ID: model.FragmentID("r1", "c.go", 1, 3), RepoID: "r1", Path: "c.go", StartLine: 1, EndLine: 3, Content: "package c"},
	}
	require.NoError(t, f.Fragments().ReplaceForRepo(ctx, "r1", second))

	count, err = f.Fragments().CountByRepo(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = f.Fragments().Get(ctx, first[0].ID)
	assert.Error(t, err)
}

func TestEmbeddingSaveBatchUpserts(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	emb := &model.FragmentEmbedding{
		FragmentID: "r1:a.go:L1-10",
		Provider:   "ollama",
		Model:      "nomic-embed-text",
		RepoID:     "r1",
		Vector:     model.Vector{0.1, 0.2},
		Dim:        2,
	}
	require.NoError(t, f.Embeddings().SaveBatch(ctx, []*model.FragmentEmbedding{emb}))

	// 同键重写覆盖向量
	emb2 := &model.FragmentEmbedding{
		FragmentID: "r1:a.go:L1-10",
		Provider:   "ollama",
		Model:      "nomic-embed-text",
		RepoID:     "r1",
		Vector:     model.Vector{0.9, 0.8},
		Dim:        2,
	}
	require.NoError(t, f.Embeddings().SaveBatch(ctx, []*model.FragmentEmbedding{emb2}))

	embs, err := f.Embeddings().ListByRepos(ctx, []string{"r1"}, "ollama", "nomic-embed-text")
	require.NoError(t, err)
	require.Len(t, embs, 1)
	assert.Equal(t, model.Vector{0.9, 0.8}, embs[0].Vector)
}

func TestEmbeddingListFiltersProviderAndModel(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	batch := []*model.FragmentEmbedding{
		{FragmentID: "r1:a.go:L1-2", Provider: "ollama", Model: "nomic-embed-text", RepoID: "r1", Vector: model.Vector{1}, Dim: 1},
		{FragmentID: "r1:a.go:L1-2", Provider: "openai", Model: "text-embedding-3-small", RepoID: "r1", Vector: model.Vector{2}, Dim: 1},
		{FragmentID: "r2:x.go:L1-2", Provider: "ollama", Model: "nomic-embed-text", RepoID: "r2", Vector: model.Vector{3}, Dim: 1},
	}
	require.NoError(t, f.Embeddings().SaveBatch(ctx, batch))

	embs, err := f.Embeddings().ListByRepos(ctx, []string{"r1", "r2"}, "ollama", "nomic-embed-text")
	require.NoError(t, err)
	assert.Len(t, embs, 2)

	embs, err = f.Embeddings().ListByRepos(ctx, []string{"r1"}, "openai", "text-embedding-3-small")
	require.NoError(t, err)
	assert.Len(t, embs, 1)

	embs, err = f.Embeddings().ListByRepos(ctx, nil, "ollama", "nomic-embed-text")
	require.NoError(t, err)
	assert.Empty(t, embs)
}

func TestAppendMessageAssignsMonotonicSeq(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	conv := &model.Conversation{ID: "conv-1", Scope: model.ScopeRepo, ScopeID: "r1"}
	require.NoError(t, f.Conversations().Create(ctx, conv))

	m1, err := f.Conversations().AppendMessage(ctx, "conv-1", model.MessageRoleUser, "q1")
	require.NoError(t, err)
	m2, err := f.Conversations().AppendMessage(ctx, "conv-1", model.MessageRoleAssistant, "a1")
	require.NoError(t, err)

	assert.Equal(t, 1, m1.Seq)
	assert.Equal(t, 2, m2.Seq)
}

func TestRecentMessagesOldestFirst(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	conv := &model.Conversation{ID: "conv-2", Scope: model.ScopeRepo, ScopeID: "r1"}
	require.NoError(t, f.Conversations().Create(ctx, conv))

	contents := []string{"q1", "a1", "q2", "a2"}
	roles := []string{
		model.MessageRoleUser, model.MessageRoleAssistant,
		model.MessageRoleUser, model.MessageRoleAssistant,
	}
	for i := range contents {
		_, err := f.Conversations().AppendMessage(ctx, "conv-2", roles[i], contents[i])
		require.NoError(t, err)
	}

	msgs, err := f.Conversations().RecentMessages(ctx, "conv-2", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "q2", msgs[0].Content)
	assert.Equal(t, "a2", msgs[1].Content)

	msgs, err = f.Conversations().RecentMessages(ctx, "conv-2", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "q1", msgs[0].Content)
	assert.Equal(t, "a2", msgs[3].Content)
}

func TestRecentMessagesUnknownConversation(t *testing.T) {
	f := newTestFactory(t)

	msgs, err := f.Conversations().RecentMessages(context.Background(), "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestConversationDeleteRemovesMessages(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	conv := &model.Conversation{ID: "conv-3", Scope: model.ScopeGroup, ScopeID: "g1"}
	require.NoError(t, f.Conversations().Create(ctx, conv))
	_, err := f.Conversations().AppendMessage(ctx, "conv-3", model.MessageRoleUser, "q")
	require.NoError(t, err)

	require.NoError(t, f.Conversations().Delete(ctx, "conv-3"))

	msgs, err := f.Conversations().RecentMessages(ctx, "conv-3", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
