package biz

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/gitnar/pkg/llm"
)

// outlineMaxFiles 纳入概览的文件数量上限，超出的仓库只列目录。
const outlineMaxFiles = 400

// Outliner 生成仓库结构概览。配置了 Chat 供应商时会附带一段
// 模型生成的摘要，生成失败则退回纯文件列表。
type Outliner struct {
	chatProvider llm.ChatProvider
}

// NewOutliner 创建概览生成器。chatProvider 可以为 nil。
func NewOutliner(chatProvider llm.ChatProvider) *Outliner {
	return &Outliner{chatProvider: chatProvider}
}

// Outline 生成仓库概览文本。
func (o *Outliner) Outline(ctx context.Context, repoName, rootDir string) (string, error) {
	listing, err := buildFileListing(rootDir)
	if err != nil {
		return "", err
	}

	plain := fmt.Sprintf("Repository: %s\n\nFiles:\n%s", repoName, listing)

	if o.chatProvider == nil {
		return plain, nil
	}

	prompt := fmt.Sprintf(
		"Summarize the purpose and structure of the repository %q based on its file listing.\n"+
			"Keep it under 15 lines.\n\n%s", repoName, listing)

	summary, err := o.chatProvider.Generate(ctx, prompt, "")
	if err != nil {
		logger.Warnw("outline summary failed, falling back to file listing",
			"repo", repoName, "error", err.Error())
		return plain, nil
	}

	return fmt.Sprintf("Repository: %s\n\n%s\n\nFiles:\n%s", repoName, summary, listing), nil
}

// buildFileListing 生成排序后的文件清单。
func buildFileListing(rootDir string) (string, error) {
	var files []string

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

		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", err
	}

	sort.Strings(files)
	if len(files) > outlineMaxFiles {
		files = files[:outlineMaxFiles]
		files = append(files, "... (truncated)")
	}

	var sb strings.Builder
	for _, f := range files {
		sb.WriteString("  ")
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
