// Package options contains flags and options for initializing the gitnar server.
package options

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	gitnarsvc "github.com/kart-io/gitnar/internal/gitnar"
	cacheopts "github.com/kart-io/gitnar/pkg/options/cache"
	httpopts "github.com/kart-io/gitnar/pkg/options/http"
	llmopts "github.com/kart-io/gitnar/pkg/options/llm"
	logopts "github.com/kart-io/gitnar/pkg/options/logger"
	qaopts "github.com/kart-io/gitnar/pkg/options/qa"
	sqliteopts "github.com/kart-io/gitnar/pkg/options/sqlite"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// SQLiteOptions contains SQLite database configuration.
	SQLiteOptions *sqliteopts.Options `json:"sqlite" mapstructure:"sqlite"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// QAOptions contains query engine configuration.
	QAOptions *qaopts.Options `json:"qa" mapstructure:"qa"`

	// CacheOptions contains answer cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		SQLiteOptions:    sqliteopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		QAOptions:        qaopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
	}
}

// AddFlags adds all server flags to the given FlagSet.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTPOptions.AddFlags(fs)
	o.LogOptions.AddFlags(fs)
	o.SQLiteOptions.AddFlags(fs)
	o.EmbeddingOptions.AddFlags(fs, "embedding")
	o.ChatOptions.AddFlags(fs, "chat")
	o.QAOptions.AddFlags(fs)
	o.CacheOptions.AddFlags(fs)
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return o.LogOptions.Complete()
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.HTTPOptions.Validate()...)
	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.SQLiteOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.QAOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)

	return errors.Join(errs...)
}

// Config builds a gitnarsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*gitnarsvc.Config, error) {
	return &gitnarsvc.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		SQLiteOptions:    o.SQLiteOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		QAOptions:        o.QAOptions,
		CacheOptions:     o.CacheOptions,
	}, nil
}
