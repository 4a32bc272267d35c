package assets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	b := Default()

	assert.Contains(t, string(b.Index), "<!DOCTYPE html>")
	assert.Contains(t, string(b.Index), `href="/open"`)

	require.Greater(t, len(b.Image), 4)
	assert.True(t, bytes.HasPrefix(b.Image, []byte{0xFF, 0xD8}), "JPEG SOI marker")
	assert.True(t, bytes.HasSuffix(b.Image, []byte{0xFF, 0xD9}), "JPEG EOI marker")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte("<p>hi</p>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ImageFile), []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0644))

	b, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []byte("<p>hi</p>"), b.Index)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, b.Image)
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		_, err := LoadDir(t.TempDir())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Empty", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte("x"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ImageFile), nil, 0644))

		_, err := LoadDir(dir)
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})
}
