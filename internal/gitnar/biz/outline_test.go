package biz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutlinePlainListing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "util.go"), []byte("package pkg\n"), 0o644))

	o := NewOutliner(nil)
	out, err := o.Outline(context.Background(), "demo", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Repository: demo")
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "pkg/util.go")
}

func TestOutlineWithSummary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	chat := &fakeChat{reply: "A demo service."}
	o := NewOutliner(chat)
	out, err := o.Outline(context.Background(), "demo", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "A demo service.")
	assert.Contains(t, out, "main.go")
}

func TestOutlineFallsBackWhenSummaryFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	chat := &fakeChat{fail: true}
	o := NewOutliner(chat)
	out, err := o.Outline(context.Background(), "demo", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Repository: demo")
	assert.Contains(t, out, "main.go")
}
