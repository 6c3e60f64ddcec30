// Package model provides data models for the gitnar service.
package model

import (
	"time"
)

// Repo status values.
const (
	RepoStatusPending  = "pending"
	RepoStatusCloning  = "cloning"
	RepoStatusIndexing = "indexing"
	RepoStatusReady    = "ready"
	RepoStatusFailed   = "failed"
)

// Repo represents an indexed git repository.
type Repo struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(128)"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Description   string    `json:"description,omitempty" gorm:"type:text"`
	URL           string    `json:"url" gorm:"type:varchar(512)"` // Remote URL or local path
	Branch        string    `json:"branch" gorm:"type:varchar(128)"`
	Commit        string    `json:"commit" gorm:"type:varchar(64)"`
	LocalPath     string    `json:"local_path" gorm:"type:varchar(512)"`
	Status        string    `json:"status" gorm:"type:varchar(32);default:'pending';index"`
	FragmentCount int       `json:"fragment_count" gorm:"default:0"`
	Outline       string    `json:"outline,omitempty" gorm:"type:text"`
	LastError     string    `json:"last_error,omitempty" gorm:"type:text"`
	IndexedAt     time.Time `json:"indexed_at"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Repo.
func (Repo) TableName() string {
	return "repos"
}

// RepoGroup is a named collection of repositories queried together.
type RepoGroup struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(128)"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	RepoIDs     StringSet `json:"repo_ids" gorm:"type:text;serializer:json"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for RepoGroup.
func (RepoGroup) TableName() string {
	return "repo_groups"
}

// StringSet is an ordered list of unique identifiers stored as JSON.
type StringSet []string

// Contains reports whether the set holds id.
func (s StringSet) Contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}
