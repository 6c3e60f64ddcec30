package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/gitnar/internal/model"
)

type repos struct {
	db *gorm.DB
}

func newRepos(db *gorm.DB) *repos {
	return &repos{db}
}

// Create creates a new repo record.
func (r *repos) Create(ctx context.Context, repo *model.Repo) error {
	return r.db.WithContext(ctx).Create(repo).Error
}

// Update updates an existing repo record.
func (r *repos) Update(ctx context.Context, repo *model.Repo) error {
	return r.db.WithContext(ctx).Save(repo).Error
}

// Delete deletes a repo by ID.
func (r *repos) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Repo{}).Error
}

// Get retrieves a repo by ID.
func (r *repos) Get(ctx context.Context, id string) (*model.Repo, error) {
	var repo model.Repo
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&repo).Error; err != nil {
		return nil, err
	}
	return &repo, nil
}

// List lists repos with pagination.
func (r *repos) List(ctx context.Context, offset, limit int) (int64, []*model.Repo, error) {
	var count int64
	var items []*model.Repo

	if err := r.db.WithContext(ctx).Model(&model.Repo{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}

	if err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return count, items, nil
}

// UpdateStatus updates the status and last error of a repo.
func (r *repos) UpdateStatus(ctx context.Context, id, status, lastError string) error {
	return r.db.WithContext(ctx).Model(&model.Repo{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "last_error": lastError}).Error
}
