package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kart-io/gitnar/internal/model"
	sqliteopts "github.com/kart-io/gitnar/pkg/options/sqlite"
)

var (
	clientFactory Factory
	once          sync.Once
)

// datastore implements the Factory interface.
type datastore struct {
	db *gorm.DB
}

// GetFactory returns the process-wide storage factory, opening the
// database on first call.
func GetFactory(opts *sqliteopts.Options) (Factory, error) {
	var err error

	once.Do(func() {
		clientFactory, err = NewFactory(opts)
	})

	if clientFactory == nil || err != nil {
		return nil, fmt.Errorf("failed to get sqlite factory: %w", err)
	}

	return clientFactory, nil
}

// NewFactory opens the SQLite database and migrates the schema.
func NewFactory(opts *sqliteopts.Options) (Factory, error) {
	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(opts.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.LogLevel(opts.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite 写入是单写者模型，限制连接数避免 SQLITE_BUSY
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)

	ds := &datastore{db}
	if err := ds.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return ds, nil
}

// Repos returns the repo store.
func (ds *datastore) Repos() RepoStore {
	return newRepos(ds.db)
}

// Groups returns the group store.
func (ds *datastore) Groups() GroupStore {
	return newGroups(ds.db)
}

// Fragments returns the fragment store.
func (ds *datastore) Fragments() FragmentStore {
	return newFragments(ds.db)
}

// Embeddings returns the embedding store.
func (ds *datastore) Embeddings() EmbeddingStore {
	return newEmbeddings(ds.db)
}

// Conversations returns the conversation store.
func (ds *datastore) Conversations() ConversationStore {
	return newConversations(ds.db)
}

// AutoMigrate migrates the database schema.
func (ds *datastore) AutoMigrate() error {
	return ds.db.AutoMigrate(
		&model.Repo{},
		&model.RepoGroup{},
		&model.Fragment{},
		&model.FragmentEmbedding{},
		&model.Conversation{},
		&model.ConversationMessage{},
	)
}

// Close closes the factory and underlying connections.
func (ds *datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
