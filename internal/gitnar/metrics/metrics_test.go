package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetQAMetricsSingleton(t *testing.T) {
	m1 := GetQAMetrics()
	m2 := GetQAMetrics()
	assert.Same(t, m1, m2)
}

func TestRecordQueryCountsHitsAndErrors(t *testing.T) {
	m := GetQAMetrics()
	m.Reset()

	m.RecordQuery(true, nil)
	m.RecordQuery(false, nil)
	m.RecordQuery(false, nil)
	m.RecordQuery(false, errors.New("boom"))

	stats := m.Stats()
	queries := stats["queries"].(map[string]any)
	assert.EqualValues(t, 4, queries["total"])
	assert.EqualValues(t, 1, queries["cache_hits"])
	assert.EqualValues(t, 2, queries["cache_misses"])
	assert.EqualValues(t, 1, queries["errors"])
	// 命中率只统计成功查询
	assert.InDelta(t, 1.0/3.0, queries["cache_hit_rate"].(float64), 1e-9)
}

func TestRecordRetrievalAverages(t *testing.T) {
	m := GetQAMetrics()
	m.Reset()

	m.RecordRetrieval(100*time.Millisecond, nil)
	m.RecordRetrieval(300*time.Millisecond, nil)

	stats := m.Stats()
	retrieval := stats["retrieval"].(map[string]any)
	assert.EqualValues(t, 2, retrieval["total"])
	assert.InDelta(t, 0.2, retrieval["avg_duration_secs"].(float64), 1e-9)
}

func TestRecordIndexingSkipsCountsOnError(t *testing.T) {
	m := GetQAMetrics()
	m.Reset()

	m.RecordIndexing(10, 10, nil)
	m.RecordIndexing(5, 0, errors.New("embed failed"))

	stats := m.Stats()
	indexing := stats["indexing"].(map[string]any)
	assert.EqualValues(t, 1, indexing["repos_indexed"])
	assert.EqualValues(t, 10, indexing["fragments_indexed"])
	assert.EqualValues(t, 1, indexing["errors"])
}

func TestExportPrometheusFormat(t *testing.T) {
	m := GetQAMetrics()
	m.Reset()
	m.RecordQuery(false, nil)

	out := m.Export("gitnar")
	assert.Contains(t, out, "# TYPE gitnar_queries_total counter")
	assert.Contains(t, out, "gitnar_queries_total 1")
	assert.Contains(t, out, "gitnar_uptime_seconds")
}
