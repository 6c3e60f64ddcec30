package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/gitnar/internal/model"
)

type embeddings struct {
	db *gorm.DB
}

func newEmbeddings(db *gorm.DB) *embeddings {
	return &embeddings{db}
}

// SaveBatch persists a batch of embeddings in one transaction.
// Existing rows for the same (fragment, provider, model) are overwritten.
func (e *embeddings) SaveBatch(ctx context.Context, embs []*model.FragmentEmbedding) error {
	if len(embs) == 0 {
		return nil
	}
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "fragment_id"}, {Name: "provider"}, {Name: "model"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"vector", "dim", "repo_id"}),
		}).CreateInBatches(embs, insertBatchSize).Error
	})
}

// ListByRepos returns all embeddings for the given repos under one
// provider and model pair.
func (e *embeddings) ListByRepos(ctx context.Context, repoIDs []string, provider, embedModel string) ([]*model.FragmentEmbedding, error) {
	if len(repoIDs) == 0 {
		return nil, nil
	}
	var embs []*model.FragmentEmbedding
	err := e.db.WithContext(ctx).
		Where("repo_id IN ? AND provider = ? AND model = ?", repoIDs, provider, embedModel).
		Find(&embs).Error
	if err != nil {
		return nil, err
	}
	return embs, nil
}

// CountByRepo counts embeddings of a repo under one provider and model.
func (e *embeddings) CountByRepo(ctx context.Context, repoID, provider, embedModel string) (int64, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&model.FragmentEmbedding{}).
		Where("repo_id = ? AND provider = ? AND model = ?", repoID, provider, embedModel).
		Count(&count).Error
	return count, err
}

// DeleteByRepo deletes all embeddings of a repo across providers.
func (e *embeddings) DeleteByRepo(ctx context.Context, repoID string) error {
	return e.db.WithContext(ctx).Where("repo_id = ?", repoID).Delete(&model.FragmentEmbedding{}).Error
}
