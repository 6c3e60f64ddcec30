package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/gitnar/internal/model"
	"github.com/kart-io/gitnar/pkg/utils/json"
)

// AnswerCacheConfig 回答缓存配置。
type AnswerCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// AnswerCache 按作用域和问题缓存回答。带会话的请求不走缓存，
// 因为历史会改变提示词内容。
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache 创建回答缓存实例。
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "gitnar:qa:",
		}
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

// cacheKey 基于作用域、目标和问题生成缓存键。
func (c *AnswerCache) cacheKey(scope, scopeID, question string, topK int) string {
	payload := fmt.Sprintf("%s|%s|%d|%s", scope, scopeID, topK, question)
	hash := sha256.Sum256([]byte(payload))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get 从缓存获取回答。未命中返回 (nil, nil)。
func (c *AnswerCache) Get(ctx context.Context, scope, scopeID, question string, topK int) (*model.Answer, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, nil
	}

	key := c.cacheKey(scope, scopeID, question, topK)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("answer cache miss", "key", key)
			return nil, nil
		}
		logger.Warnw("failed to get from answer cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var answer model.Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		logger.Warnw("failed to unmarshal cached answer", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	answer.Cached = true
	logger.Infow("answer cache hit", "key", key, "answer_length", len(answer.Text))
	return &answer, nil
}

// Set 将回答写入缓存。
func (c *AnswerCache) Set(ctx context.Context, scope, scopeID, question string, topK int, answer *model.Answer) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	key := c.cacheKey(scope, scopeID, question, topK)

	data, err := json.Marshal(answer)
	if err != nil {
		logger.Warnw("failed to marshal answer for caching", "error", err.Error())
		return err
	}

	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set answer cache", "error", err.Error(), "key", key)
		return err
	}

	return nil
}

// Invalidate 清除缓存。重建索引后调用，避免旧引用指向已删除的片段。
func (c *AnswerCache) Invalidate(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared answer cache", "deleted_count", deleted)
	return nil
}

// Stats 返回缓存统计信息。
func (c *AnswerCache) Stats(ctx context.Context) (map[string]any, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]any{"enabled": false}, nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]any{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}, nil
}
