package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/gitnar/internal/model"
)

type groups struct {
	db *gorm.DB
}

func newGroups(db *gorm.DB) *groups {
	return &groups{db}
}

// Create creates a new repo group.
func (g *groups) Create(ctx context.Context, group *model.RepoGroup) error {
	return g.db.WithContext(ctx).Create(group).Error
}

// Update updates an existing repo group.
func (g *groups) Update(ctx context.Context, group *model.RepoGroup) error {
	return g.db.WithContext(ctx).Save(group).Error
}

// Delete deletes a repo group by ID.
func (g *groups) Delete(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.RepoGroup{}).Error
}

// Get retrieves a repo group by ID.
func (g *groups) Get(ctx context.Context, id string) (*model.RepoGroup, error) {
	var group model.RepoGroup
	if err := g.db.WithContext(ctx).Where("id = ?", id).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// List lists repo groups with pagination.
func (g *groups) List(ctx context.Context, offset, limit int) (int64, []*model.RepoGroup, error) {
	var count int64
	var items []*model.RepoGroup

	if err := g.db.WithContext(ctx).Model(&model.RepoGroup{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}

	if err := g.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return count, items, nil
}
