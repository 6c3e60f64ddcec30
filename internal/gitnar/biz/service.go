package biz

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/kart-io/logger"
	"gorm.io/gorm"

	"github.com/kart-io/gitnar/internal/gitnar/metrics"
	"github.com/kart-io/gitnar/internal/gitnar/store"
	"github.com/kart-io/gitnar/internal/model"
	apierrors "github.com/kart-io/gitnar/pkg/errors"
	"github.com/kart-io/gitnar/pkg/llm"
)

// RepoSyncer 同步仓库工作副本，返回工作副本路径与检出的 commit。
type RepoSyncer interface {
	Sync(ctx context.Context, url, branch, dest string) (string, string, error)
}

// ServiceConfig QA 服务配置。
type ServiceConfig struct {
	// TopK 单仓库检索默认数量。
	TopK int
	// TopKPerRepo 组模式每仓库默认配额。
	TopKPerRepo int
	// HistoryLimit 纳入提示词的历史轮次上限。
	HistoryLimit int
	// ReposRoot 仓库工作副本根目录。
	ReposRoot string
}

// Service 组合检索、组装、会话与生成，提供问答接口。
type Service struct {
	store     store.Factory
	retriever *Retriever
	prompts   *PromptBuilder
	sessions  *Sessions
	indexer   *Indexer
	chunker   *Chunker
	outliner  *Outliner
	syncer    RepoSyncer

	chatProvider llm.ChatProvider
	cache        *AnswerCache
	metrics      *metrics.QAMetrics
	config       *ServiceConfig
}

// NewService 创建 QA 服务实例。
func NewService(
	factory store.Factory,
	retriever *Retriever,
	prompts *PromptBuilder,
	sessions *Sessions,
	indexer *Indexer,
	chunker *Chunker,
	outliner *Outliner,
	syncer RepoSyncer,
	chatProvider llm.ChatProvider,
	cache *AnswerCache,
	config *ServiceConfig,
) *Service {
	return &Service{
		store:        factory,
		retriever:    retriever,
		prompts:      prompts,
		sessions:     sessions,
		indexer:      indexer,
		chunker:      chunker,
		outliner:     outliner,
		syncer:       syncer,
		chatProvider: chatProvider,
		cache:        cache,
		metrics:      metrics.GetQAMetrics(),
		config:       config,
	}
}

// AskRepoRequest 单仓库问答请求。
type AskRepoRequest struct {
	RepoID      string
	Question    string
	TopK        int
	SessionID   string
	LinkHistory bool
}

// AskGroupRequest 仓库组问答请求。
type AskGroupRequest struct {
	GroupID     string
	Question    string
	TopKPerRepo int
	SessionID   string
	LinkHistory bool
}

// AskRepo 对单个仓库提问。
func (s *Service) AskRepo(ctx context.Context, req *AskRepoRequest) (*model.Answer, error) {
	if req.Question == "" {
		return nil, apierrors.ErrQAInvalidArgument.WithMessage("question cannot be empty")
	}
	topK := req.TopK
	if topK == 0 {
		topK = s.config.TopK
	}
	if topK < 1 {
		return nil, apierrors.ErrQAInvalidArgument.WithMessage("top_k must be at least 1")
	}

	repo, err := s.store.Repos().Get(ctx, req.RepoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrQARepoNotFound.WithMessagef("repository %s not found", req.RepoID)
		}
		return nil, apierrors.ErrQADatabase.WithCause(err)
	}

	// 作用域冲突在调用任何供应商之前拒绝
	if req.SessionID != "" {
		if err := s.sessions.CheckScope(ctx, req.SessionID, model.ScopeRepo, req.RepoID); err != nil {
			return nil, err
		}
	}

	// 无会话的请求可以安全走缓存，历史不影响结果
	if req.SessionID == "" {
		if cached, err := s.cache.Get(ctx, model.ScopeRepo, req.RepoID, req.Question, topK); err == nil && cached != nil {
			cached.LinkHistory = req.LinkHistory
			s.metrics.RecordQuery(true, nil)
			return cached, nil
		}
	}

	retrievalStart := time.Now()
	hits, err := s.retriever.Search(ctx, []string{req.RepoID}, req.Question, topK)
	s.metrics.RecordRetrieval(time.Since(retrievalStart), err)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	answer, err := s.answer(ctx, &answerInput{
		scope:       model.ScopeRepo,
		scopeID:     req.RepoID,
		scopeLabel:  repo.Name,
		multiRepo:   false,
		question:    req.Question,
		hits:        hits,
		sessionID:   req.SessionID,
		linkHistory: req.LinkHistory,
	})
	s.metrics.RecordQuery(false, err)
	if err != nil {
		return nil, err
	}

	if req.SessionID == "" {
		_ = s.cache.Set(ctx, model.ScopeRepo, req.RepoID, req.Question, topK, answer)
	}

	return answer, nil
}

// AskGroup 对仓库组提问。每个成员仓库有独立检索配额，
// 合并后按分数全局重排。
func (s *Service) AskGroup(ctx context.Context, req *AskGroupRequest) (*model.Answer, error) {
	if req.Question == "" {
		return nil, apierrors.ErrQAInvalidArgument.WithMessage("question cannot be empty")
	}
	topKPerRepo := req.TopKPerRepo
	if topKPerRepo == 0 {
		topKPerRepo = s.config.TopKPerRepo
	}
	if topKPerRepo < 1 {
		return nil, apierrors.ErrQAInvalidArgument.WithMessage("top_k_per_repo must be at least 1")
	}

	group, err := s.store.Groups().Get(ctx, req.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrQAGroupNotFound.WithMessagef("group %s not found", req.GroupID)
		}
		return nil, apierrors.ErrQADatabase.WithCause(err)
	}

	if req.SessionID != "" {
		if err := s.sessions.CheckScope(ctx, req.SessionID, model.ScopeGroup, req.GroupID); err != nil {
			return nil, err
		}
	}

	if req.SessionID == "" {
		if cached, err := s.cache.Get(ctx, model.ScopeGroup, req.GroupID, req.Question, topKPerRepo); err == nil && cached != nil {
			cached.LinkHistory = req.LinkHistory
			s.metrics.RecordQuery(true, nil)
			return cached, nil
		}
	}

	retrievalStart := time.Now()
	hits, err := s.retriever.SearchGroup(ctx, group.RepoIDs, req.Question, topKPerRepo)
	s.metrics.RecordRetrieval(time.Since(retrievalStart), err)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	answer, err := s.answer(ctx, &answerInput{
		scope:       model.ScopeGroup,
		scopeID:     req.GroupID,
		scopeLabel:  group.Name,
		multiRepo:   true,
		question:    req.Question,
		hits:        hits,
		sessionID:   req.SessionID,
		linkHistory: req.LinkHistory,
	})
	s.metrics.RecordQuery(false, err)
	if err != nil {
		return nil, err
	}

	if req.SessionID == "" {
		_ = s.cache.Set(ctx, model.ScopeGroup, req.GroupID, req.Question, topKPerRepo, answer)
	}

	return answer, nil
}

type answerInput struct {
	scope       string
	scopeID     string
	scopeLabel  string
	multiRepo   bool
	question    string
	hits        []*model.Hit
	sessionID   string
	linkHistory bool
}

// answer 执行提示词组装、生成和历史追加。任何一步失败都不会写入历史。
func (s *Service) answer(ctx context.Context, in *answerInput) (*model.Answer, error) {
	var history []*model.ConversationMessage
	if in.linkHistory && in.sessionID != "" {
		var err error
		history, err = s.sessions.Recent(ctx, in.sessionID, s.config.HistoryLimit)
		if err != nil {
			return nil, err
		}
	}

	promptResult, err := s.prompts.Build(&PromptInput{
		ScopeLabel: in.scopeLabel,
		MultiRepo:  in.multiRepo,
		Hits:       in.hits,
		History:    history,
		Question:   in.question,
	})
	if err != nil {
		return nil, err
	}

	completionStart := time.Now()
	text, err := s.chatProvider.Generate(ctx, promptResult.Prompt, "")
	s.metrics.RecordCompletion(time.Since(completionStart), err)
	if err != nil {
		return nil, apierrors.ErrQACompletionProvider.WithCause(err)
	}

	if in.linkHistory && in.sessionID != "" {
		if err := s.sessions.AppendExchange(ctx, in.sessionID, in.scope, in.scopeID, in.question, text); err != nil {
			return nil, err
		}
	}

	refs := make([]model.Reference, len(promptResult.Kept))
	for i, hit := range promptResult.Kept {
		refs[i] = model.Reference{
			FragmentID: hit.Fragment.ID,
			RepoID:     hit.Fragment.RepoID,
			Path:       hit.Fragment.Path,
			StartLine:  hit.Fragment.StartLine,
			EndLine:    hit.Fragment.EndLine,
			Score:      hit.Score,
		}
	}

	answer := &model.Answer{
		Text:        text,
		References:  refs,
		LinkHistory: in.linkHistory,
	}
	if in.linkHistory && in.sessionID != "" {
		answer.ConversationID = in.sessionID
	}

	return answer, nil
}

// AddRepoRequest 仓库注册请求。
type AddRepoRequest struct {
	ID          string
	Name        string
	Description string
	URL         string
	Branch      string
}

// RegisterRepo 注册仓库：克隆、切分、嵌入、入库。
func (s *Service) RegisterRepo(ctx context.Context, req *AddRepoRequest) (*model.Repo, error) {
	if req.ID == "" || req.URL == "" {
		return nil, apierrors.ErrQAInvalidArgument.WithMessage("repo id and url are required")
	}
	if _, err := s.store.Repos().Get(ctx, req.ID); err == nil {
		return nil, apierrors.ErrQARepoExists.WithMessagef("repository %s already registered", req.ID)
	}

	name := req.Name
	if name == "" {
		name = req.ID
	}
	repo := &model.Repo{
		ID:          req.ID,
		Name:        name,
		Description: req.Description,
		URL:         req.URL,
		Branch:      req.Branch,
		Status:      model.RepoStatusPending,
	}
	if err := s.store.Repos().Create(ctx, repo); err != nil {
		return nil, apierrors.ErrQADatabase.WithCause(err)
	}

	if err := s.indexRepo(ctx, repo); err != nil {
		return repo, err
	}
	return repo, nil
}

// ReindexRepo 重新同步并重建仓库索引。
func (s *Service) ReindexRepo(ctx context.Context, repoID string) (*model.Repo, error) {
	repo, err := s.store.Repos().Get(ctx, repoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrQARepoNotFound.WithMessagef("repository %s not found", repoID)
		}
		return nil, apierrors.ErrQADatabase.WithCause(err)
	}

	if err := s.indexRepo(ctx, repo); err != nil {
		return repo, err
	}
	return repo, nil
}

// indexRepo 同步工作副本并重建片段与嵌入。
func (s *Service) indexRepo(ctx context.Context, repo *model.Repo) error {
	_ = s.store.Repos().UpdateStatus(ctx, repo.ID, model.RepoStatusCloning, "")

	dest := filepath.Join(s.config.ReposRoot, repo.ID)
	workdir, commit, err := s.syncer.Sync(ctx, repo.URL, repo.Branch, dest)
	if err != nil {
		gitErr := apierrors.ErrQAGitFailed.WithCause(err)
		_ = s.store.Repos().UpdateStatus(ctx, repo.ID, model.RepoStatusFailed, gitErr.Error())
		s.metrics.RecordIndexing(0, 0, gitErr)
		return gitErr
	}

	_ = s.store.Repos().UpdateStatus(ctx, repo.ID, model.RepoStatusIndexing, "")

	frags, err := s.chunker.ChunkRepo(repo.ID, workdir)
	if err != nil {
		idxErr := apierrors.ErrQAIndexFailed.WithCause(err)
		_ = s.store.Repos().UpdateStatus(ctx, repo.ID, model.RepoStatusFailed, idxErr.Error())
		s.metrics.RecordIndexing(0, 0, idxErr)
		return idxErr
	}

	embedded, err := s.indexer.IndexFragments(ctx, repo.ID, frags)
	if err != nil {
		_ = s.store.Repos().UpdateStatus(ctx, repo.ID, model.RepoStatusFailed, err.Error())
		s.metrics.RecordIndexing(len(frags), embedded, err)
		return err
	}

	// 概览生成失败不影响索引结果
	if outline, oerr := s.outliner.Outline(ctx, repo.Name, workdir); oerr == nil {
		repo.Outline = outline
	} else {
		logger.Warnw("outline generation failed", "repo", repo.ID, "error", oerr.Error())
	}

	repo.Commit = commit
	repo.LocalPath = workdir
	repo.Status = model.RepoStatusReady
	repo.LastError = ""
	repo.FragmentCount = len(frags)
	repo.IndexedAt = time.Now()
	if err := s.store.Repos().Update(ctx, repo); err != nil {
		return apierrors.ErrQADatabase.WithCause(err)
	}

	s.metrics.RecordIndexing(len(frags), embedded, nil)
	_ = s.cache.Invalidate(ctx)

	logger.Infow("repository indexed",
		"repo", repo.ID, "commit", commit, "fragments", len(frags), "embedded", embedded)
	return nil
}

// DeleteRepo 删除仓库及其片段与嵌入。
func (s *Service) DeleteRepo(ctx context.Context, repoID string) error {
	if _, err := s.store.Repos().Get(ctx, repoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierrors.ErrQARepoNotFound.WithMessagef("repository %s not found", repoID)
		}
		return apierrors.ErrQADatabase.WithCause(err)
	}

	if err := s.store.Embeddings().DeleteByRepo(ctx, repoID); err != nil {
		return apierrors.ErrQADatabase.WithCause(err)
	}
	if err := s.store.Fragments().DeleteByRepo(ctx, repoID); err != nil {
		return apierrors.ErrQADatabase.WithCause(err)
	}
	if err := s.store.Repos().Delete(ctx, repoID); err != nil {
		return apierrors.ErrQADatabase.WithCause(err)
	}

	_ = s.cache.Invalidate(ctx)
	return nil
}

// RepoOutline 生成仓库结构概览。
func (s *Service) RepoOutline(ctx context.Context, repoID string) (string, error) {
	repo, err := s.store.Repos().Get(ctx, repoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apierrors.ErrQARepoNotFound.WithMessagef("repository %s not found", repoID)
		}
		return "", apierrors.ErrQADatabase.WithCause(err)
	}
	if repo.Outline != "" {
		return repo.Outline, nil
	}
	if repo.LocalPath == "" {
		return "", apierrors.ErrQAInvalidArgument.WithMessage("repository has no local working copy")
	}

	return s.outliner.Outline(ctx, repo.Name, repo.LocalPath)
}

// CreateGroup 创建仓库组，所有成员必须已注册且在组内唯一。
func (s *Service) CreateGroup(ctx context.Context, group *model.RepoGroup) error {
	if group.ID == "" || len(group.RepoIDs) == 0 {
		return apierrors.ErrQAInvalidArgument.WithMessage("group id and repo_ids are required")
	}
	if _, err := s.store.Groups().Get(ctx, group.ID); err == nil {
		return apierrors.ErrQAGroupExists.WithMessagef("group %s already exists", group.ID)
	}

	seen := make(map[string]struct{}, len(group.RepoIDs))
	for _, repoID := range group.RepoIDs {
		if _, dup := seen[repoID]; dup {
			return apierrors.ErrQAInvalidArgument.WithMessagef("duplicate member repository %s", repoID)
		}
		seen[repoID] = struct{}{}
		if _, err := s.store.Repos().Get(ctx, repoID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.ErrQARepoNotFound.WithMessagef("member repository %s not found", repoID)
			}
			return apierrors.ErrQADatabase.WithCause(err)
		}
	}

	if group.Name == "" {
		group.Name = group.ID
	}
	if err := s.store.Groups().Create(ctx, group); err != nil {
		return apierrors.ErrQADatabase.WithCause(err)
	}
	return nil
}

// Store 暴露底层存储，供只读列表接口使用。
func (s *Service) Store() store.Factory {
	return s.store
}

// Sessions 暴露会话管理器，供历史查询接口使用。
func (s *Service) Sessions() *Sessions {
	return s.sessions
}

// CacheStats 返回缓存统计。
func (s *Service) CacheStats(ctx context.Context) (map[string]any, error) {
	return s.cache.Stats(ctx)
}
