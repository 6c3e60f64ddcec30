package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/gitnar/internal/model"
)

type fragments struct {
	db *gorm.DB
}

func newFragments(db *gorm.DB) *fragments {
	return &fragments{db}
}

// insertBatchSize keeps SQLite parameter counts under the variable limit.
const insertBatchSize = 200

// ReplaceForRepo atomically replaces all fragments of a repo.
func (f *fragments) ReplaceForRepo(ctx context.Context, repoID string, frags []*model.Fragment) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("repo_id = ?", repoID).Delete(&model.Fragment{}).Error; err != nil {
			return err
		}
		if len(frags) == 0 {
			return nil
		}
		return tx.CreateInBatches(frags, insertBatchSize).Error
	})
}

// Get retrieves a fragment by ID.
func (f *fragments) Get(ctx context.Context, id string) (*model.Fragment, error) {
	var frag model.Fragment
	if err := f.db.WithContext(ctx).Where("id = ?", id).First(&frag).Error; err != nil {
		return nil, err
	}
	return &frag, nil
}

// ListByIDs retrieves fragments by their IDs. Missing IDs are skipped.
func (f *fragments) ListByIDs(ctx context.Context, ids []string) ([]*model.Fragment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var frags []*model.Fragment
	if err := f.db.WithContext(ctx).Where("id IN ?", ids).Find(&frags).Error; err != nil {
		return nil, err
	}
	return frags, nil
}

// CountByRepo counts fragments of a repo.
func (f *fragments) CountByRepo(ctx context.Context, repoID string) (int64, error) {
	var count int64
	err := f.db.WithContext(ctx).Model(&model.Fragment{}).Where("repo_id = ?", repoID).Count(&count).Error
	return count, err
}

// DeleteByRepo deletes all fragments of a repo.
func (f *fragments) DeleteByRepo(ctx context.Context, repoID string) error {
	return f.db.WithContext(ctx).Where("repo_id = ?", repoID).Delete(&model.Fragment{}).Error
}
