// Package store provides SQLite-backed persistence for repos, fragments,
// embeddings, and conversations.
package store

import (
	"context"

	"github.com/kart-io/gitnar/internal/model"
)

// Factory defines the factory interface for creating stores.
type Factory interface {
	Repos() RepoStore
	Groups() GroupStore
	Fragments() FragmentStore
	Embeddings() EmbeddingStore
	Conversations() ConversationStore
	Close() error
}

// RepoStore defines repository storage.
type RepoStore interface {
	Create(ctx context.Context, repo *model.Repo) error
	Update(ctx context.Context, repo *model.Repo) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Repo, error)
	List(ctx context.Context, offset, limit int) (int64, []*model.Repo, error)
	UpdateStatus(ctx context.Context, id, status, lastError string) error
}

// GroupStore defines repository group storage.
type GroupStore interface {
	Create(ctx context.Context, group *model.RepoGroup) error
	Update(ctx context.Context, group *model.RepoGroup) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.RepoGroup, error)
	List(ctx context.Context, offset, limit int) (int64, []*model.RepoGroup, error)
}

// FragmentStore defines source fragment storage.
type FragmentStore interface {
	// ReplaceForRepo atomically replaces all fragments of a repo.
	ReplaceForRepo(ctx context.Context, repoID string, fragments []*model.Fragment) error
	Get(ctx context.Context, id string) (*model.Fragment, error)
	ListByIDs(ctx context.Context, ids []string) ([]*model.Fragment, error)
	CountByRepo(ctx context.Context, repoID string) (int64, error)
	DeleteByRepo(ctx context.Context, repoID string) error
}

// EmbeddingStore defines embedding vector storage.
type EmbeddingStore interface {
	// SaveBatch persists a batch of embeddings in one transaction.
	// Either the whole batch lands or none of it does.
	SaveBatch(ctx context.Context, embeddings []*model.FragmentEmbedding) error

	// ListByRepos returns all embeddings for the given repos under one
	// provider and model pair.
	ListByRepos(ctx context.Context, repoIDs []string, provider, embedModel string) ([]*model.FragmentEmbedding, error)

	CountByRepo(ctx context.Context, repoID, provider, embedModel string) (int64, error)
	DeleteByRepo(ctx context.Context, repoID string) error
}

// ConversationStore defines conversation session storage.
type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	Get(ctx context.Context, id string) (*model.Conversation, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scope, scopeID string, offset, limit int) (int64, []*model.Conversation, error)

	// AppendMessage appends a turn with the next sequence number. The
	// sequence is assigned inside the transaction so concurrent appends
	// to the same conversation never collide.
	AppendMessage(ctx context.Context, conversationID, role, content string) (*model.ConversationMessage, error)

	// RecentMessages returns the most recent limit messages ordered
	// oldest-first. An unknown conversation yields an empty slice.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*model.ConversationMessage, error)
}
