// Package sqlite provides SQLite datasource configuration options.
package sqlite

import (
	"fmt"
	"time"

	"github.com/kart-io/gitnar/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains SQLite database configuration.
type Options struct {
	// Path 数据库文件路径，":memory:" 表示内存库（仅用于测试）。
	Path string `json:"path" mapstructure:"path"`

	// BusyTimeout SQLite busy_timeout。
	BusyTimeout time.Duration `json:"busy-timeout" mapstructure:"busy-timeout"`

	// MaxOpenConns 最大打开连接数。
	MaxOpenConns int `json:"max-open-conns" mapstructure:"max-open-conns"`

	// LogLevel gorm 日志级别 (1:silent, 2:error, 3:warn, 4:info)。
	LogLevel int `json:"log-level" mapstructure:"log-level"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		Path:         "_output/gitnar.db",
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
		LogLevel:     2,
	}
}

// AddFlags adds flags for SQLite options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, options.Join(prefixes...)+"sqlite.path", o.Path, "SQLite database file path.")
	fs.DurationVar(&o.BusyTimeout, options.Join(prefixes...)+"sqlite.busy-timeout", o.BusyTimeout, "SQLite busy timeout.")
	fs.IntVar(&o.MaxOpenConns, options.Join(prefixes...)+"sqlite.max-open-conns", o.MaxOpenConns, "Maximum number of open connections.")
	fs.IntVar(&o.LogLevel, options.Join(prefixes...)+"sqlite.log-level", o.LogLevel, "GORM log level (1:silent, 2:error, 3:warn, 4:info).")
}

// Validate validates the SQLite options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Path == "" {
		errs = append(errs, fmt.Errorf("sqlite.path cannot be empty"))
	}
	if o.LogLevel < 1 || o.LogLevel > 4 {
		errs = append(errs, fmt.Errorf("sqlite.log-level must be between 1 and 4"))
	}
	return errs
}

// DSN returns the SQLite datasource name with pragmas applied.
func (o *Options) DSN() string {
	if o.Path == ":memory:" {
		return ":memory:"
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", o.Path, o.BusyTimeout.Milliseconds())
}
