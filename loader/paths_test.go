package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestResolvePaths_SingleFile(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "shapes.ttl")
	writeFile(t, file, "")

	paths, err := ResolvePaths([]string{file})
	require.NoError(t, err)
	assert.Equal(t, []string{file}, paths)
}

func TestResolvePaths_UnknownExtension(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "notes.txt")
	writeFile(t, file, "test")

	_, err := ResolvePaths([]string{file})
	assert.Error(t, err)
}

func TestResolvePaths_Directory(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.ttl"), "")
	writeFile(t, filepath.Join(tmpDir, "b.nt"), "")
	writeFile(t, filepath.Join(tmpDir, "README.md"), "")
	writeFile(t, filepath.Join(tmpDir, "nested", "c.ttl"), "")

	paths, err := ResolvePaths([]string{tmpDir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(tmpDir, "a.ttl"), filepath.Join(tmpDir, "b.nt")}, paths)
}

func TestResolvePaths_RecursiveGlob(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "onto", "a.ttl"), "")
	writeFile(t, filepath.Join(tmpDir, "onto", "deep", "b.owl"), "")
	writeFile(t, filepath.Join(tmpDir, "onto", "deep", "skip.md"), "")

	paths, err := ResolvePaths([]string{filepath.Join(tmpDir, "onto", "**")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "onto", "a.ttl"),
		filepath.Join(tmpDir, "onto", "deep", "b.owl"),
	}, paths)
}

func TestResolvePaths_Deduplicates(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "a.ttl")
	writeFile(t, file, "")

	paths, err := ResolvePaths([]string{file, filepath.Join(tmpDir, "*.ttl")})
	require.NoError(t, err)
	assert.Equal(t, []string{file}, paths)
}

func TestResolvePaths_NoMatches(t *testing.T) {
	_, err := ResolvePaths([]string{filepath.Join(t.TempDir(), "*.ttl")})
	assert.Error(t, err)
}

func TestMakeAbsolutePattern_Relative(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := makeAbsolutePattern("*.ttl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "*.ttl"), got)

	got, err = makeAbsolutePattern("shapes/**/*.ttl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "shapes")+string(filepath.Separator)+filepath.FromSlash("**/*.ttl"), got)
}
