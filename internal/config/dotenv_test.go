package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindDotenv_CurrentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DotenvFile)
	require.NoError(t, os.WriteFile(path, []byte("TODOS_BACKEND=cloud\n"), 0644))

	got, err := FindDotenv(dir)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestFindDotenv_ParentDir(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "sub", "deep")
	require.NoError(t, os.MkdirAll(child, 0755))
	path := filepath.Join(parent, DotenvFile)
	require.NoError(t, os.WriteFile(path, nil, 0644))

	got, err := FindDotenv(child)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestFindDotenv_SkipsDirectoryNamedDotenv(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "sub")
	require.NoError(t, os.MkdirAll(filepath.Join(child, DotenvFile), 0755))
	path := filepath.Join(parent, DotenvFile)
	require.NoError(t, os.WriteFile(path, nil, 0644))

	got, err := FindDotenv(child)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}
