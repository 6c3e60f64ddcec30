package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/gitnar/internal/gitnar/store"
	"github.com/kart-io/gitnar/internal/model"
	"github.com/kart-io/gitnar/pkg/errors"
	"github.com/kart-io/gitnar/pkg/llm"
)

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	// BatchSize 每次嵌入调用的片段数量。
	BatchSize int
	// MaxFragmentChars 送入嵌入模型前的单片段字符上限。
	MaxFragmentChars int
}

// Indexer 负责片段索引。
type Indexer struct {
	fragments     store.FragmentStore
	embeddings    store.EmbeddingStore
	embedProvider llm.EmbeddingProvider
	config        *IndexerConfig
}

// NewIndexer 创建索引器实例。
func NewIndexer(
	fragments store.FragmentStore,
	embeddings store.EmbeddingStore,
	embedProvider llm.EmbeddingProvider,
	config *IndexerConfig,
) *Indexer {
	return &Indexer{
		fragments:     fragments,
		embeddings:    embeddings,
		embedProvider: embedProvider,
		config:        config,
	}
}

// IndexFragments 重建一个仓库的片段与嵌入。
// 片段整体替换；嵌入按批生成，每批要么全部入库要么全部丢弃。
// 返回成功嵌入的片段数量。
func (i *Indexer) IndexFragments(ctx context.Context, repoID string, frags []*model.Fragment) (int, error) {
	if err := i.fragments.ReplaceForRepo(ctx, repoID, frags); err != nil {
		return 0, errors.ErrQADatabase.WithCause(err)
	}

	return i.EmbedFragments(ctx, repoID, frags)
}

// EmbedFragments 为片段生成嵌入并入库，不改动片段本身。
func (i *Indexer) EmbedFragments(ctx context.Context, repoID string, frags []*model.Fragment) (int, error) {
	if len(frags) == 0 {
		return 0, nil
	}

	batchSize := i.config.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	indexed := 0
	for start := 0; start < len(frags); start += batchSize {
		end := start + batchSize
		if end > len(frags) {
			end = len(frags)
		}
		batch := frags[start:end]

		if err := i.embedBatch(ctx, repoID, batch); err != nil {
			logger.Errorw("embedding batch failed",
				"repo", repoID, "batch_start", start, "batch_end", end, "error", err.Error())
			return indexed, err
		}
		indexed += len(batch)
	}

	logger.Infow("fragments embedded",
		"repo", repoID,
		"count", indexed,
		"provider", i.embedProvider.Name(),
		"model", i.embedProvider.Model())
	return indexed, nil
}

// embedBatch 处理单个批次。嵌入调用失败时整批丢弃，不产生半批数据。
func (i *Indexer) embedBatch(ctx context.Context, repoID string, batch []*model.Fragment) error {
	texts := make([]string, len(batch))
	for idx, frag := range batch {
		texts[idx] = truncateText(frag.Content, i.config.MaxFragmentChars)
	}

	vectors, err := i.embedProvider.Embed(ctx, texts)
	if err != nil {
		return errors.ErrQAEmbeddingProvider.WithCause(err)
	}
	if len(vectors) != len(batch) {
		return errors.ErrQAEmbeddingProvider.WithMessagef(
			"embedding count mismatch: got %d, want %d", len(vectors), len(batch))
	}

	embs := make([]*model.FragmentEmbedding, len(batch))
	for idx, frag := range batch {
		embs[idx] = &model.FragmentEmbedding{
			FragmentID: frag.ID,
			Provider:   i.embedProvider.Name(),
			Model:      i.embedProvider.Model(),
			RepoID:     repoID,
			Vector:     vectors[idx],
			Dim:        len(vectors[idx]),
		}
	}

	if err := i.embeddings.SaveBatch(ctx, embs); err != nil {
		return errors.ErrQADatabase.WithCause(err)
	}
	return nil
}

// truncateText 按字符上限截断文本，limit<=0 表示不限制。
func truncateText(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
