package biz

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/gitnar/internal/model"
)

// ChunkerConfig 源码切分配置。
type ChunkerConfig struct {
	// WindowLines 每个片段的行数窗口。
	WindowLines int
	// OverlapLines 相邻片段的重叠行数。
	OverlapLines int
	// MaxFileBytes 超过该大小的文件跳过。
	MaxFileBytes int64
}

// DefaultChunkerConfig 返回默认切分配置。
func DefaultChunkerConfig() *ChunkerConfig {
	return &ChunkerConfig{
		WindowLines:  80,
		OverlapLines: 10,
		MaxFileBytes: 512 * 1024,
	}
}

// Chunker 将源码文件切分为带行号定位的片段。
type Chunker struct {
	config *ChunkerConfig
}

// NewChunker 创建切分器。
func NewChunker(config *ChunkerConfig) *Chunker {
	if config == nil {
		config = DefaultChunkerConfig()
	}
	if config.WindowLines < 1 {
		config.WindowLines = 80
	}
	if config.OverlapLines < 0 || config.OverlapLines >= config.WindowLines {
		config.OverlapLines = 0
	}
	return &Chunker{config: config}
}

var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"_output":      true,
	"dist":         true,
	"target":       true,
	"__pycache__":  true,
}

var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".jsx":   "javascript",
	".java":  "java",
	".kt":    "kotlin",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".sql":   "sql",
	".proto": "protobuf",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".json":  "json",
	".md":    "markdown",
	".rst":   "markdown",
	".txt":   "text",
}

// ChunkRepo 遍历仓库目录并切分所有可识别的源码文件。
func (c *Chunker) ChunkRepo(repoID, rootDir string) ([]*model.Fragment, error) {
	var frags []*model.Fragment

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != rootDir) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := languageByExt[ext]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if c.config.MaxFileBytes > 0 && info.Size() > c.config.MaxFileBytes {
			logger.Debugw("skipping oversized file", "path", path, "size", info.Size())
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warnw("failed to read file", "path", path, "error", err.Error())
			return nil
		}
		if isBinary(content) {
			return nil
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		frags = append(frags, c.ChunkFile(repoID, relPath, string(content))...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return frags, nil
}

// ChunkFile 按行窗口切分单个文件。行号从 1 开始，窗口之间按配置重叠。
func (c *Chunker) ChunkFile(repoID, relPath, content string) []*model.Fragment {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}

	language := languageByExt[strings.ToLower(filepath.Ext(relPath))]
	step := c.config.WindowLines - c.config.OverlapLines

	var frags []*model.Fragment
	for start := 0; start < len(lines); start += step {
		end := start + c.config.WindowLines
		if end > len(lines) {
			end = len(lines)
		}

		text := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(text) == "" {
			if end == len(lines) {
				break
			}
			continue
		}

		startLine := start + 1
		frags = append(frags, &model.Fragment{
			ID:        model.FragmentID(repoID, relPath, startLine, end),
			RepoID:    repoID,
			Path:      relPath,
			StartLine: startLine,
			EndLine:   end,
			Language:  language,
			Content:   text,
		})

		if end == len(lines) {
			break
		}
	}

	return frags
}

// isBinary 用前 1KB 是否含 NUL 字节判断二进制文件。
func isBinary(content []byte) bool {
	probe := content
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	return bytes.IndexByte(probe, 0) >= 0
}
