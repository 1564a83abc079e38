package pefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uacscope/uacscope/internal/pefile/pefiletest"
)

func writeImage(t *testing.T, resources []pefiletest.Resource) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.exe")
	require.NoError(t, os.WriteFile(path, pefiletest.Image(resources), 0o644))
	return path
}

func TestOpen(t *testing.T) {
	path := writeImage(t, nil)

	img, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, img.Close())
}

func TestOpen_missingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "does-not-exist.exe"))
	assert.Error(t, err)
}

func TestOpen_notAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-pe.exe")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho hello\n"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}
