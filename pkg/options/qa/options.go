// Package qa provides query engine configuration options.
package qa

import (
	"fmt"

	"github.com/kart-io/gitnar/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains query engine configuration.
type Options struct {
	// TopK 单仓库检索返回的片段数量。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// TopKPerRepo 仓库组模式下每个成员仓库的检索配额。
	TopKPerRepo int `json:"top-k-per-repo" mapstructure:"top-k-per-repo"`

	// HistoryLimit 会话历史回放的最大消息数。
	HistoryLimit int `json:"history-limit" mapstructure:"history-limit"`

	// PromptBudget 提示词字符预算。
	PromptBudget int `json:"prompt-budget" mapstructure:"prompt-budget"`

	// EmbedBatchSize 索引时的向量化批大小。
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// MaxFragmentChars 向量化前片段文本的截断长度。
	MaxFragmentChars int `json:"max-fragment-chars" mapstructure:"max-fragment-chars"`

	// ReposRoot 仓库本地检出根目录。
	ReposRoot string `json:"repos-root" mapstructure:"repos-root"`

	// RetrievalWorkers 仓库组检索的并发度。
	RetrievalWorkers int `json:"retrieval-workers" mapstructure:"retrieval-workers"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopK:             10,
		TopKPerRepo:      5,
		HistoryLimit:     20,
		PromptBudget:     24000,
		EmbedBatchSize:   32,
		MaxFragmentChars: 8000,
		ReposRoot:        "_output/repos",
		RetrievalWorkers: 4,
	}
}

// AddFlags adds flags for query engine options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"qa.top-k", o.TopK, "Default number of fragments retrieved for a single repository.")
	fs.IntVar(&o.TopKPerRepo, options.Join(prefixes...)+"qa.top-k-per-repo", o.TopKPerRepo, "Per-repository retrieval budget in group mode.")
	fs.IntVar(&o.HistoryLimit, options.Join(prefixes...)+"qa.history-limit", o.HistoryLimit, "Maximum conversation turns replayed into the prompt.")
	fs.IntVar(&o.PromptBudget, options.Join(prefixes...)+"qa.prompt-budget", o.PromptBudget, "Prompt character budget.")
	fs.IntVar(&o.EmbedBatchSize, options.Join(prefixes...)+"qa.embed-batch-size", o.EmbedBatchSize, "Embedding batch size during indexing.")
	fs.IntVar(&o.MaxFragmentChars, options.Join(prefixes...)+"qa.max-fragment-chars", o.MaxFragmentChars, "Fragment text truncation length before embedding.")
	fs.StringVar(&o.ReposRoot, options.Join(prefixes...)+"qa.repos-root", o.ReposRoot, "Root directory for local repository checkouts.")
	fs.IntVar(&o.RetrievalWorkers, options.Join(prefixes...)+"qa.retrieval-workers", o.RetrievalWorkers, "Concurrency for per-repository retrieval in group mode.")
}

// Validate validates the query engine options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopK < 1 {
		errs = append(errs, fmt.Errorf("qa.top-k must be >= 1"))
	}
	if o.TopKPerRepo < 1 {
		errs = append(errs, fmt.Errorf("qa.top-k-per-repo must be >= 1"))
	}
	if o.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("qa.history-limit cannot be negative"))
	}
	if o.PromptBudget < 1 {
		errs = append(errs, fmt.Errorf("qa.prompt-budget must be >= 1"))
	}
	if o.EmbedBatchSize < 1 {
		errs = append(errs, fmt.Errorf("qa.embed-batch-size must be >= 1"))
	}
	if o.RetrievalWorkers < 1 {
		errs = append(errs, fmt.Errorf("qa.retrieval-workers must be >= 1"))
	}
	return errs
}
