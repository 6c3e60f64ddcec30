package biz

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/gitnar/internal/gitnar/store"
	"github.com/kart-io/gitnar/internal/model"
	"github.com/kart-io/gitnar/pkg/errors"
	"github.com/kart-io/gitnar/pkg/llm"
)

// scoreTolerance 分数差小于该值视为并列，按仓库 ID 和片段 ID 决定顺序，
// 保证相同输入的检索结果完全可复现。
const scoreTolerance = 1e-9

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 单仓库检索返回的结果数量。
	TopK int
	// TopKPerRepo 组模式下每个成员仓库的独立配额。
	TopKPerRepo int
	// Workers 组模式并行检索的 worker 数量。
	Workers int
}

// Retriever 负责片段检索。
type Retriever struct {
	embeddings    store.EmbeddingStore
	fragments     store.FragmentStore
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
	pool          *ants.Pool
}

// NewRetriever 创建检索器实例。
func NewRetriever(
	embeddings store.EmbeddingStore,
	fragments store.FragmentStore,
	embedProvider llm.EmbeddingProvider,
	config *RetrieverConfig,
) (*Retriever, error) {
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	return &Retriever{
		embeddings:    embeddings,
		fragments:     fragments,
		embedProvider: embedProvider,
		config:        config,
		pool:          pool,
	}, nil
}

// Close releases the worker pool.
func (r *Retriever) Close() {
	r.pool.Release()
}

// EmbedQuery 为查询文本生成一次嵌入。组模式下只调用一次，
// 所有成员仓库共用同一个查询向量。
func (r *Retriever) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := r.embedProvider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, errors.ErrQAEmbeddingProvider.WithCause(err)
	}
	return vec, nil
}

// Search 对一组仓库执行单次检索。参数校验先于查询嵌入。
func (r *Retriever) Search(ctx context.Context, repoIDs []string, query string, topK int) ([]*model.Hit, error) {
	if topK < 1 {
		return nil, errors.ErrQAInvalidArgument.WithMessage("top_k must be at least 1")
	}
	queryVec, err := r.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.SearchVector(ctx, repoIDs, queryVec, topK)
}

// SearchVector 用已有查询向量对一组仓库执行检索。
// 结果按相似度降序，并列时按仓库 ID、片段 ID 升序。
// 空仓库集合或没有任何嵌入时返回空结果，不报错。
func (r *Retriever) SearchVector(ctx context.Context, repoIDs []string, queryVec []float32, topK int) ([]*model.Hit, error) {
	if topK < 1 {
		return nil, errors.ErrQAInvalidArgument.WithMessage("top_k must be at least 1")
	}
	if len(repoIDs) == 0 {
		return nil, nil
	}

	embs, err := r.embeddings.ListByRepos(ctx, repoIDs, r.embedProvider.Name(), r.embedProvider.Model())
	if err != nil {
		return nil, errors.ErrQADatabase.WithCause(err)
	}
	if len(embs) == 0 {
		return nil, nil
	}

	type scored struct {
		fragmentID string
		repoID     string
		score      float64
	}

	results := make([]scored, 0, len(embs))
	for _, emb := range embs {
		score, ok := cosineSimilarity(queryVec, emb.Vector)
		if !ok {
			// 零范数或维度不一致的向量不参与排序
			continue
		}
		results = append(results, scored{
			fragmentID: emb.FragmentID,
			repoID:     emb.RepoID,
			score:      score,
		})
	}
	if len(results) == 0 {
		return nil, nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		if math.Abs(results[i].score-results[j].score) > scoreTolerance {
			return results[i].score > results[j].score
		}
		if results[i].repoID != results[j].repoID {
			return results[i].repoID < results[j].repoID
		}
		return results[i].fragmentID < results[j].fragmentID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.fragmentID
	}
	frags, err := r.fragments.ListByIDs(ctx, ids)
	if err != nil {
		return nil, errors.ErrQADatabase.WithCause(err)
	}
	fragByID := make(map[string]*model.Fragment, len(frags))
	for _, frag := range frags {
		fragByID[frag.ID] = frag
	}

	hits := make([]*model.Hit, 0, len(results))
	for _, res := range results {
		frag, ok := fragByID[res.fragmentID]
		if !ok {
			// 嵌入仍在但片段已被重建索引移除
			continue
		}
		hits = append(hits, &model.Hit{Fragment: *frag, Score: res.score})
	}

	return hits, nil
}

// SearchGroup 组模式检索：每个成员仓库独立取 topKPerRepo 条，
// 再按分数全局重排。独立配额保证小仓库不会被大仓库的高分片段挤掉。
func (r *Retriever) SearchGroup(ctx context.Context, repoIDs []string, query string, topKPerRepo int) ([]*model.Hit, error) {
	if topKPerRepo < 1 {
		return nil, errors.ErrQAInvalidArgument.WithMessage("top_k_per_repo must be at least 1")
	}
	// 重复出现的仓库只检索一次，配额不会被重复消耗
	repoIDs = uniqueStrings(repoIDs)
	if len(repoIDs) == 0 {
		return nil, nil
	}

	queryVec, err := r.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	perRepo := make([][]*model.Hit, len(repoIDs))
	errs := make([]error, len(repoIDs))

	var wg sync.WaitGroup
	for i, repoID := range repoIDs {
		wg.Add(1)
		i, repoID := i, repoID
		submitErr := r.pool.Submit(func() {
			defer wg.Done()
			perRepo[i], errs[i] = r.SearchVector(ctx, []string{repoID}, queryVec, topKPerRepo)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var merged []*model.Hit
	for _, hits := range perRepo {
		merged = append(merged, hits...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if math.Abs(merged[i].Score-merged[j].Score) > scoreTolerance {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].Fragment.RepoID != merged[j].Fragment.RepoID {
			return merged[i].Fragment.RepoID < merged[j].Fragment.RepoID
		}
		return merged[i].Fragment.ID < merged[j].Fragment.ID
	})

	return merged, nil
}

// uniqueStrings 去重并保留首次出现的顺序。
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// cosineSimilarity 计算余弦相似度。零范数或维度不一致返回 ok=false。
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
