package biz

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/gitnar/internal/gitnar/store"
	"github.com/kart-io/gitnar/internal/model"
	"github.com/kart-io/gitnar/pkg/llm"
	sqliteopts "github.com/kart-io/gitnar/pkg/options/sqlite"
)

// fakeEmbedder 返回预置向量的确定性嵌入供应商。
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
	calls   int64
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: make(map[string][]float32)}
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.fail {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := f.vectors[text]; ok {
			out[i] = vec
		} else {
			out[i] = []float32{1, 0, 0}
		}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) Name() string  { return "fake" }
func (f *fakeEmbedder) Model() string { return "fake-embed" }

func (f *fakeEmbedder) callCount() int64 { return atomic.LoadInt64(&f.calls) }

// fakeChat 返回固定文本的生成供应商。
type fakeChat struct {
	reply      string
	fail       bool
	calls      int64
	lastPrompt string
}

func (f *fakeChat) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return f.reply, nil
}

func (f *fakeChat) Generate(_ context.Context, prompt string, _ string) (string, error) {
	atomic.AddInt64(&f.calls, 1)
	f.lastPrompt = prompt
	if f.fail {
		return "", fmt.Errorf("completion backend unavailable")
	}
	return f.reply, nil
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) callCount() int64 { return atomic.LoadInt64(&f.calls) }

func newBizTestFactory(t *testing.T) store.Factory {
	t.Helper()

	opts := sqliteopts.NewOptions()
	opts.Path = ":memory:"
	opts.LogLevel = 1

	factory, err := store.NewFactory(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	return factory
}

// seedFrag 测试用的片段种子。
type seedFrag struct {
	path       string
	start, end int
	vec        []float32
	content    string
}

// seedRepo 为一个仓库写入片段和嵌入，返回片段 ID（与输入同序）。
func seedRepo(t *testing.T, f store.Factory, repoID string, seeds []seedFrag) []string {
	t.Helper()
	ctx := context.Background()

	ids := make([]string, len(seeds))
	frags := make([]*model.Fragment, len(seeds))
	embs := make([]*model.FragmentEmbedding, len(seeds))
	for i, s := range seeds {
		fragID := model.FragmentID(repoID, s.path, s.start, s.end)
		content := s.content
		if content == "" {
			content = fmt.Sprintf("content of %s", fragID)
		}
		ids[i] = fragID
		frags[i] = &model.Fragment{
			ID: fragID, RepoID: repoID, Path: s.path,
			StartLine: s.start, EndLine: s.end, Content: content,
		}
		embs[i] = &model.FragmentEmbedding{
			FragmentID: fragID, Provider: "fake", Model: "fake-embed",
			RepoID: repoID, Vector: s.vec, Dim: len(s.vec),
		}
	}

	require.NoError(t, f.Fragments().ReplaceForRepo(ctx, repoID, frags))
	require.NoError(t, f.Embeddings().SaveBatch(ctx, embs))
	return ids
}
