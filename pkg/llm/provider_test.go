package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
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

func TestRegistryCreatesRegisteredProvider(t *testing.T) {
	RegisterEmbeddingProvider("fake-test", func(_ map[string]any) (EmbeddingProvider, error) {
		return &fakeEmbedder{}, nil
	})

	p, err := NewEmbeddingProvider("fake-test", nil)
	require.NoError(t, err)
	assert.Equal(t, "fake", p.Name())
	assert.Equal(t, "fake-embed", p.Model())
}

func TestRegistryUnknownProvider(t *testing.T) {
	_, err := NewEmbeddingProvider("no-such-provider", nil)
	assert.Error(t, err)

	_, err = NewChatProvider("no-such-provider", nil)
	assert.Error(t, err)
}

func TestListProvidersDedupes(t *testing.T) {
	RegisterEmbeddingProvider("dup-test", func(_ map[string]any) (EmbeddingProvider, error) {
		return &fakeEmbedder{}, nil
	})
	RegisterChatProvider("dup-test", func(_ map[string]any) (ChatProvider, error) {
		return nil, nil
	})

	names := ListProviders()
	count := 0
	for _, n := range names {
		if n == "dup-test" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
