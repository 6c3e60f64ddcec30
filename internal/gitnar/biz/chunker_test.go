package biz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkFileWindows(t *testing.T) {
	c := NewChunker(&ChunkerConfig{WindowLines: 10, OverlapLines: 2})

	lines := make([]string, 25)
	for i := range lines {
		lines[i] = "line"
	}
	frags := c.ChunkFile("r1", "main.go", strings.Join(lines, "\n"))

	require.Len(t, frags, 3)
	assert.Equal(t, 1, frags[0].StartLine)
	assert.Equal(t, 10, frags[0].EndLine)
	// 相邻窗口重叠 2 行
	assert.Equal(t, 9, frags[1].StartLine)
	assert.Equal(t, 18, frags[1].EndLine)
	assert.Equal(t, 17, frags[2].StartLine)
	assert.Equal(t, 25, frags[2].EndLine)

	assert.Equal(t, "r1:main.go:L1-10", frags[0].ID)
	assert.Equal(t, "go", frags[0].Language)
}

func TestChunkFileEmpty(t *testing.T) {
	c := NewChunker(nil)
	assert.Empty(t, c.ChunkFile("r1", "empty.go", ""))
	assert.Empty(t, c.ChunkFile("r1", "blank.go", "\n\n\n"))
}

func TestChunkFileShortFile(t *testing.T) {
	c := NewChunker(&ChunkerConfig{WindowLines: 100, OverlapLines: 10})

	frags := c.ChunkFile("r1", "short.py", "a = 1\nb = 2\n")
	require.Len(t, frags, 1)
	assert.Equal(t, 1, frags[0].StartLine)
	assert.Equal(t, 2, frags[0].EndLine)
	assert.Equal(t, "python", frags[0].Language)
	assert.Equal(t, "a = 1\nb = 2", frags[0].Content)
}

func TestChunkRepoWalksTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))

	write := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte(content), 0o644))
	}
	write("main.go", "package main\n")
	write(filepath.Join("pkg", "util.go"), "package pkg\n")
	write(filepath.Join(".git", "config.go"), "ignored\n")
	write(filepath.Join("node_modules", "dep.js"), "ignored\n")
	write("image.bin", "\x00\x01\x02binary")
	write("README.md", "# readme\n")

	c := NewChunker(nil)
	frags, err := c.ChunkRepo("r1", dir)
	require.NoError(t, err)

	paths := make(map[string]bool)
	for _, frag := range frags {
		paths[frag.Path] = true
	}
	assert.True(t, paths["main.go"])
	assert.True(t, paths["pkg/util.go"])
	assert.True(t, paths["README.md"])
	assert.False(t, paths[".git/config.go"])
	assert.False(t, paths["node_modules/dep.js"])
	assert.False(t, paths["image.bin"])
}

func TestChunkRepoSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x\n", 1000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.go"), []byte(big), 0o644))

	c := NewChunker(&ChunkerConfig{WindowLines: 80, OverlapLines: 0, MaxFileBytes: 100})
	frags, err := c.ChunkRepo("r1", dir)
	require.NoError(t, err)
	assert.Empty(t, frags)
}
