package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/gitnar/internal/model"
	apierrors "github.com/kart-io/gitnar/pkg/errors"
)

func makeFragments(repoID string, n int) []*model.Fragment {
	frags := make([]*model.Fragment, n)
	for i := range frags {
		path := "f" + string(rune('a'+i)) + ".go"
		frags[i] = &model.Fragment{
			ID: model.FragmentID(repoID, path, 1, 10), RepoID: repoID,
			Path: path, StartLine: 1, EndLine: 10, Content: "package x",
		}
	}
	return frags
}

func TestIndexFragmentsEmbedsAll(t *testing.T) {
	factory := newBizTestFactory(t)
	embedder := newFakeEmbedder()
	indexer := NewIndexer(factory.Fragments(), factory.Embeddings(), embedder, &IndexerConfig{
		BatchSize: 2, MaxFragmentChars: 8000,
	})

	frags := makeFragments("r1", 5)
	indexed, err := indexer.IndexFragments(context.Background(), "r1", frags)
	require.NoError(t, err)
	assert.Equal(t, 5, indexed)

	// 5 个片段按批大小 2 分为 3 批
	assert.EqualValues(t, 3, embedder.callCount())

	embs, err := factory.Embeddings().ListByRepos(context.Background(), []string{"r1"}, "fake", "fake-embed")
	require.NoError(t, err)
	assert.Len(t, embs, 5)
}

// failAfterEmbedder 前 N 次调用成功，之后失败。
type failAfterEmbedder struct {
	*fakeEmbedder
	succeed int
	seen    int
}

func (f *failAfterEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.seen++
	if f.seen > f.succeed {
		f.fail = true
	}
	return f.fakeEmbedder.Embed(ctx, texts)
}

func TestIndexFragmentsBatchAtomicity(t *testing.T) {
	factory := newBizTestFactory(t)
	embedder := &failAfterEmbedder{fakeEmbedder: newFakeEmbedder(), succeed: 1}
	indexer := NewIndexer(factory.Fragments(), factory.Embeddings(), embedder, &IndexerConfig{
		BatchSize: 2, MaxFragmentChars: 8000,
	})

	frags := makeFragments("r1", 5)
	indexed, err := indexer.IndexFragments(context.Background(), "r1", frags)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrQAEmbeddingProvider.Code))

	// 第一批（2 个）成功入库，失败批整批丢弃
	assert.Equal(t, 2, indexed)
	embs, lerr := factory.Embeddings().ListByRepos(context.Background(), []string{"r1"}, "fake", "fake-embed")
	require.NoError(t, lerr)
	assert.Len(t, embs, 2)
}

// recordingEmbedder 记录收到的文本。
type recordingEmbedder struct {
	*fakeEmbedder
	texts []string
}

func (r *recordingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	r.texts = append(r.texts, texts...)
	return r.fakeEmbedder.Embed(ctx, texts)
}

func TestIndexFragmentsTruncatesLongContent(t *testing.T) {
	factory := newBizTestFactory(t)
	embedder := &recordingEmbedder{fakeEmbedder: newFakeEmbedder()}
	indexer := NewIndexer(factory.Fragments(), factory.Embeddings(), embedder, &IndexerConfig{
		BatchSize: 32, MaxFragmentChars: 100,
	})

	frag := &model.Fragment{
		ID: model.FragmentID("r1", "big.go", 1, 500), RepoID: "r1",
		Path: "big.go", StartLine: 1, EndLine: 500,
		Content: strings.Repeat("x", 5000),
	}
	_, err := indexer.IndexFragments(context.Background(), "r1", []*model.Fragment{frag})
	require.NoError(t, err)

	require.Len(t, embedder.texts, 1)
	assert.Len(t, embedder.texts[0], 100)

	// 入库的片段内容保持完整，截断只发生在嵌入调用上
	stored, err := factory.Fragments().Get(context.Background(), frag.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Content, 5000)
}

func TestIndexFragmentsEmptyInput(t *testing.T) {
	factory := newBizTestFactory(t)
	embedder := newFakeEmbedder()
	indexer := NewIndexer(factory.Fragments(), factory.Embeddings(), embedder, &IndexerConfig{
		BatchSize: 32, MaxFragmentChars: 8000,
	})

	indexed, err := indexer.IndexFragments(context.Background(), "r1", nil)
	require.NoError(t, err)
	assert.Zero(t, indexed)
	assert.Zero(t, embedder.callCount())
}
