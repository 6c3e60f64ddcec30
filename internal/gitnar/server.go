// Package gitnarsvc provides the gitnar server implementation.
package gitnarsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/version"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/gitnar/internal/gitnar/biz"
	"github.com/kart-io/gitnar/internal/gitnar/gitrepo"
	"github.com/kart-io/gitnar/internal/gitnar/router"
	"github.com/kart-io/gitnar/internal/gitnar/store"
	"github.com/kart-io/gitnar/pkg/llm"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/gitnar/pkg/llm/ollama"
	_ "github.com/kart-io/gitnar/pkg/llm/openai"

	cacheopts "github.com/kart-io/gitnar/pkg/options/cache"
	httpopts "github.com/kart-io/gitnar/pkg/options/http"
	llmopts "github.com/kart-io/gitnar/pkg/options/llm"
	logopts "github.com/kart-io/gitnar/pkg/options/logger"
	qaopts "github.com/kart-io/gitnar/pkg/options/qa"
	sqliteopts "github.com/kart-io/gitnar/pkg/options/sqlite"
)

// Name is the name of the application.
const Name = "gitnar"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	SQLiteOptions    *sqliteopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	QAOptions        *qaopts.Options
	CacheOptions     *cacheopts.Options
}

// Server represents the gitnar server.
type Server struct {
	httpServer *http.Server
	config     *Config
	retriever  *biz.Retriever
	factory    store.Factory
	redisClose func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(_ context.Context) (*Server, error) {
	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", version.Get().GitVersion)
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting gitnar service...")

	// 2. 初始化存储层
	factory, err := store.GetFactory(cfg.SQLiteOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	logger.Infow("SQLite store initialized", "path", cfg.SQLiteOptions.Path)

	// 3. 初始化 Redis 客户端（用于答案缓存）
	var redisClient *goredis.Client
	var redisClose func()
	if cfg.CacheOptions.Enabled {
		redisOpts := cfg.CacheOptions.Redis
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         redisOpts.Addr(),
			Password:     redisOpts.Password,
			DB:           redisOpts.Database,
			MaxRetries:   redisOpts.MaxRetries,
			PoolSize:     redisOpts.PoolSize,
			MinIdleConns: redisOpts.MinIdleConns,
		})

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
			_ = redisClient.Close()
			redisClient = nil
		} else {
			redisClose = func() { _ = redisClient.Close() }
			logger.Infow("Redis cache initialized",
				"addr", redisOpts.Addr(), "ttl", cfg.CacheOptions.TTL)
		}
	} else {
		logger.Info("Answer cache is disabled")
	}

	answerCache := biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
		Enabled:   cfg.CacheOptions.Enabled && redisClient != nil,
		TTL:       cfg.CacheOptions.TTL,
		KeyPrefix: cfg.CacheOptions.KeyPrefix,
	})

	// 4. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider, "model", cfg.EmbeddingOptions.Model)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider, "model", cfg.ChatOptions.Model)

	// 5. 初始化 Biz 层
	retriever, err := biz.NewRetriever(factory.Embeddings(), factory.Fragments(), embedProvider, &biz.RetrieverConfig{
		TopK:        cfg.QAOptions.TopK,
		TopKPerRepo: cfg.QAOptions.TopKPerRepo,
		Workers:     cfg.QAOptions.RetrievalWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retriever: %w", err)
	}

	indexer := biz.NewIndexer(factory.Fragments(), factory.Embeddings(), embedProvider, &biz.IndexerConfig{
		BatchSize:        cfg.QAOptions.EmbedBatchSize,
		MaxFragmentChars: cfg.QAOptions.MaxFragmentChars,
	})

	service := biz.NewService(
		factory,
		retriever,
		biz.NewPromptBuilder(&biz.PromptConfig{Budget: cfg.QAOptions.PromptBudget}),
		biz.NewSessions(factory.Conversations()),
		indexer,
		biz.NewChunker(nil),
		biz.NewOutliner(chatProvider),
		gitrepo.NewManager(),
		chatProvider,
		answerCache,
		&biz.ServiceConfig{
			TopK:         cfg.QAOptions.TopK,
			TopKPerRepo:  cfg.QAOptions.TopKPerRepo,
			HistoryLimit: cfg.QAOptions.HistoryLimit,
			ReposRoot:    cfg.QAOptions.ReposRoot,
		},
	)
	logger.Infow("QA service initialized",
		"top_k", cfg.QAOptions.TopK,
		"top_k_per_repo", cfg.QAOptions.TopKPerRepo,
		"prompt_budget", cfg.QAOptions.PromptBudget,
		"cache.enabled", cfg.CacheOptions.Enabled,
	)

	// 6. 初始化 HTTP 服务器并注册路由
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine, service)

	httpServer := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("gitnar service is ready")
	return &Server{
		httpServer: httpServer,
		config:     cfg,
		retriever:  retriever,
		factory:    factory,
		redisClose: redisClose,
	}, nil
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gitnar service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.HTTPOptions.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("HTTP server shutdown failed", "error", err.Error())
	}

	s.retriever.Close()
	if s.redisClose != nil {
		s.redisClose()
	}
	if err := s.factory.Close(); err != nil {
		logger.Errorw("store close failed", "error", err.Error())
	}

	logger.Info("gitnar service stopped")
	return nil
}
