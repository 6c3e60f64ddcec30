// Package metrics 提供 QA 服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// QAMetrics QA 服务业务指标。
type QAMetrics struct {
	// 查询指标
	queriesTotal       uint64 // 总查询次数
	queriesCacheHits   uint64 // 缓存命中次数
	queriesCacheMisses uint64 // 缓存未命中次数
	queriesErrors      uint64 // 查询错误次数

	// 检索指标
	retrievalTotal    uint64  // 总检索次数
	retrievalDuration float64 // 检索总耗时（秒）
	retrievalErrors   uint64  // 检索错误次数

	// 生成指标
	completionsTotal    uint64  // 生成总调用次数
	completionsDuration float64 // 生成总耗时（秒）
	completionsErrors   uint64  // 生成错误次数

	// 索引指标
	reposIndexed      uint64 // 已索引仓库数
	fragmentsIndexed  uint64 // 已索引片段数
	embeddingsCreated uint64 // 已生成嵌入数
	indexErrors       uint64 // 索引错误次数

	startTime  time.Time
	durationMu sync.Mutex
}

// globalQAMetrics 全局 QA 指标实例。
var (
	globalQAMetrics *QAMetrics
	qaMetricsOnce   sync.Once
)

// GetQAMetrics 获取全局 QA 指标实例。
func GetQAMetrics() *QAMetrics {
	qaMetricsOnce.Do(func() {
		globalQAMetrics = &QAMetrics{
			startTime: time.Now(),
		}
	})
	return globalQAMetrics
}

// RecordQuery 记录查询。
func (m *QAMetrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
}

// RecordRetrieval 记录检索操作。
func (m *QAMetrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordCompletion 记录生成调用。
func (m *QAMetrics) RecordCompletion(duration time.Duration, err error) {
	atomic.AddUint64(&m.completionsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.completionsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.completionsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordIndexing 记录索引操作。
func (m *QAMetrics) RecordIndexing(fragments, embeddings int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		return
	}
	atomic.AddUint64(&m.reposIndexed, 1)
	atomic.AddUint64(&m.fragmentsIndexed, uint64(fragments))
	atomic.AddUint64(&m.embeddingsCreated, uint64(embeddings))
}

// Export 导出 Prometheus 格式指标。
func (m *QAMetrics) Export(namespace string) string {
	var sb strings.Builder

	writeCounter := func(name, help string, value uint64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", namespace, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", namespace, name))
		sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", namespace, name, value))
	}

	writeCounter("queries_total", "Total number of QA queries.", atomic.LoadUint64(&m.queriesTotal))
	writeCounter("queries_cache_hits_total", "Number of cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	writeCounter("queries_cache_misses_total", "Number of cache misses.", atomic.LoadUint64(&m.queriesCacheMisses))
	writeCounter("queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))
	writeCounter("retrieval_total", "Total number of retrievals.", atomic.LoadUint64(&m.retrievalTotal))
	writeCounter("retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))
	writeCounter("completions_total", "Total number of completion calls.", atomic.LoadUint64(&m.completionsTotal))
	writeCounter("completions_errors_total", "Number of completion errors.", atomic.LoadUint64(&m.completionsErrors))
	writeCounter("repos_indexed_total", "Total repositories indexed.", atomic.LoadUint64(&m.reposIndexed))
	writeCounter("fragments_indexed_total", "Total fragments indexed.", atomic.LoadUint64(&m.fragmentsIndexed))
	writeCounter("embeddings_created_total", "Total embeddings created.", atomic.LoadUint64(&m.embeddingsCreated))
	writeCounter("index_errors_total", "Number of indexing errors.", atomic.LoadUint64(&m.indexErrors))

	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	completionsDuration := m.completionsDuration
	m.durationMu.Unlock()

	sb.WriteString(fmt.Sprintf("# HELP %s_retrieval_duration_seconds_total Total retrieval duration.\n", namespace))
	sb.WriteString(fmt.Sprintf("# TYPE %s_retrieval_duration_seconds_total counter\n", namespace))
	sb.WriteString(fmt.Sprintf("%s_retrieval_duration_seconds_total %.6f\n\n", namespace, retrievalDuration))

	sb.WriteString(fmt.Sprintf("# HELP %s_completions_duration_seconds_total Total completion duration.\n", namespace))
	sb.WriteString(fmt.Sprintf("# TYPE %s_completions_duration_seconds_total counter\n", namespace))
	sb.WriteString(fmt.Sprintf("%s_completions_duration_seconds_total %.6f\n\n", namespace, completionsDuration))

	uptime := time.Since(m.startTime).Seconds()
	sb.WriteString(fmt.Sprintf("# HELP %s_uptime_seconds Service uptime in seconds.\n", namespace))
	sb.WriteString(fmt.Sprintf("# TYPE %s_uptime_seconds gauge\n", namespace))
	sb.WriteString(fmt.Sprintf("%s_uptime_seconds %.2f\n\n", namespace, uptime))

	return sb.String()
}

// Stats 返回当前统计信息（用于 API）。
func (m *QAMetrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	completionsDuration := m.completionsDuration
	m.durationMu.Unlock()

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	cacheTotal := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if cacheTotal > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheTotal)
	}

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	avgRetrieval := 0.0
	if retrievalTotal > 0 {
		avgRetrieval = retrievalDuration / float64(retrievalTotal)
	}

	completionsTotal := atomic.LoadUint64(&m.completionsTotal)
	avgCompletion := 0.0
	if completionsTotal > 0 {
		avgCompletion = completionsDuration / float64(completionsTotal)
	}

	return map[string]any{
		"queries": map[string]any{
			"total":          atomic.LoadUint64(&m.queriesTotal),
			"cache_hits":     cacheHits,
			"cache_misses":   cacheMisses,
			"cache_hit_rate": cacheHitRate,
			"errors":         atomic.LoadUint64(&m.queriesErrors),
		},
		"retrieval": map[string]any{
			"total":               retrievalTotal,
			"total_duration_secs": retrievalDuration,
			"avg_duration_secs":   avgRetrieval,
			"errors":              atomic.LoadUint64(&m.retrievalErrors),
		},
		"completions": map[string]any{
			"total":               completionsTotal,
			"total_duration_secs": completionsDuration,
			"avg_duration_secs":   avgCompletion,
			"errors":              atomic.LoadUint64(&m.completionsErrors),
		},
		"indexing": map[string]any{
			"repos_indexed":      atomic.LoadUint64(&m.reposIndexed),
			"fragments_indexed":  atomic.LoadUint64(&m.fragmentsIndexed),
			"embeddings_created": atomic.LoadUint64(&m.embeddingsCreated),
			"errors":             atomic.LoadUint64(&m.indexErrors),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset 重置所有指标（仅用于测试）。
func (m *QAMetrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.completionsTotal, 0)
	atomic.StoreUint64(&m.completionsErrors, 0)
	atomic.StoreUint64(&m.reposIndexed, 0)
	atomic.StoreUint64(&m.fragmentsIndexed, 0)
	atomic.StoreUint64(&m.embeddingsCreated, 0)
	atomic.StoreUint64(&m.indexErrors, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.completionsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
