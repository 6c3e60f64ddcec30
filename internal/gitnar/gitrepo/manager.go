// Package gitrepo manages local working copies of indexed repositories
// using the git CLI.
package gitrepo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"
)

// Manager clones and updates repository working copies.
type Manager struct{}

// NewManager creates a git manager.
func NewManager() *Manager {
	return &Manager{}
}

// Sync clones url into dest, or fetches if the working copy already
// exists, then checks out branch. An empty branch tries "main" and
// falls back to "master". Returns the working copy path and the
// checked-out commit hash. Local directory URLs are used in place
// without cloning.
func (m *Manager) Sync(ctx context.Context, url, branch, dest string) (string, string, error) {
	if isLocalPath(url) {
		commit, err := m.headCommit(ctx, url)
		if err != nil {
			// 非 git 目录也允许索引，只是没有 commit 信息
			commit = ""
		}
		return url, commit, nil
	}

	if _, err := os.Stat(filepath.Join(dest, ".git")); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", "", fmt.Errorf("failed to create repos directory: %w", err)
		}
		if _, err := m.run(ctx, "", "clone", "--depth", "1", url, dest); err != nil {
			return "", "", fmt.Errorf("git clone failed: %w", err)
		}
		logger.Infow("repository cloned", "url", url, "dest", dest)
	} else {
		if _, err := m.run(ctx, dest, "fetch", "--depth", "1", "origin"); err != nil {
			return "", "", fmt.Errorf("git fetch failed: %w", err)
		}
	}

	if err := m.checkout(ctx, dest, branch); err != nil {
		return "", "", err
	}

	commit, err := m.headCommit(ctx, dest)
	if err != nil {
		return "", "", err
	}
	return dest, commit, nil
}

// checkout switches to the requested branch, trying main then master
// when no branch is given.
func (m *Manager) checkout(ctx context.Context, dest, branch string) error {
	candidates := []string{branch}
	if branch == "" {
		candidates = []string{"main", "master"}
	}

	var lastErr error
	for _, cand := range candidates {
		if _, err := m.run(ctx, dest, "checkout", cand); err == nil {
			if _, err := m.run(ctx, dest, "reset", "--hard", "origin/"+cand); err != nil {
				logger.Debugw("reset to origin failed, keeping local head",
					"dest", dest, "branch", cand, "error", err.Error())
			}
			return nil
		} else {
			lastErr = err
		}
	}

	return fmt.Errorf("git checkout failed: %w", lastErr)
}

// headCommit returns the current HEAD commit hash.
func (m *Manager) headCommit(ctx context.Context, dir string) (string, error) {
	out, err := m.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (m *Manager) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}

// isLocalPath reports whether url points at a local directory.
func isLocalPath(url string) bool {
	if strings.Contains(url, "://") || strings.HasPrefix(url, "git@") {
		return false
	}
	info, err := os.Stat(url)
	return err == nil && info.IsDir()
}
