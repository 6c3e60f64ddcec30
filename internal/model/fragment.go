package model

import (
	"fmt"
	"time"
)

// Fragment is a contiguous slice of a source file.
// The ID format is "repoID:path:Lstart-end" and is stable across reindexing
// as long as the content location does not move.
type Fragment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(512)"`
	RepoID    string    `json:"repo_id" gorm:"type:varchar(128);index;not null"`
	Path      string    `json:"path" gorm:"type:varchar(512);not null"`
	StartLine int       `json:"start_line" gorm:"default:0"`
	EndLine   int       `json:"end_line" gorm:"default:0"`
	Language  string    `json:"language" gorm:"type:varchar(32)"`
	Symbol    string    `json:"symbol" gorm:"type:varchar(255)"` // Enclosing function/type, if known
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Fragment.
func (Fragment) TableName() string {
	return "fragments"
}

// FragmentID builds the canonical fragment identifier.
func FragmentID(repoID, path string, startLine, endLine int) string {
	return fmt.Sprintf("%s:%s:L%d-%d", repoID, path, startLine, endLine)
}

// FragmentEmbedding stores one vector per (fragment, provider, model).
// Reindexing with a different provider or model keeps the old vectors so
// switching back does not require re-embedding.
type FragmentEmbedding struct {
	FragmentID string    `json:"fragment_id" gorm:"primaryKey;type:varchar(512)"`
	Provider   string    `json:"provider" gorm:"primaryKey;type:varchar(64)"`
	Model      string    `json:"model" gorm:"primaryKey;type:varchar(128)"`
	RepoID     string    `json:"repo_id" gorm:"type:varchar(128);index;not null"`
	Vector     Vector    `json:"vector" gorm:"type:text;serializer:json"`
	Dim        int       `json:"dim" gorm:"default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for FragmentEmbedding.
func (FragmentEmbedding) TableName() string {
	return "fragment_embeddings"
}

// Vector is an embedding vector stored as a JSON array.
type Vector []float32
