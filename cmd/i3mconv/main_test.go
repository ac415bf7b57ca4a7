package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netisu/i3m/convert"
)

const scene = `{"asset":{"version":"2.0"},"nodes":[{"name":"Root","children":[1]},{"name":"Child"}]}`

func exec(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestEmptySource(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	code, out, _ := exec(t, "-i", src, "-o", dst)
	assert.Equal(t, convert.ExitOK, code)
	assert.Contains(t, out, "Successfully converted: 0")
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPartialFailure(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "ok.gltf"), []byte(scene), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "corrupt.glb"), []byte("glTF garbage"), 0644))

	code, out, logs := exec(t, "--input-dir", src, "--output-dir", dst, "-j", "2")
	assert.Equal(t, convert.ExitFailed, code)
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, logs, "corrupt.glb")
	assert.FileExists(t, filepath.Join(dst, "ok.i3m"))
	assert.NoFileExists(t, filepath.Join(dst, "corrupt.i3m"))
}

func TestFatal(t *testing.T) {
	code, _, _ := exec(t, "-i", filepath.Join(t.TempDir(), "missing"), "-o", t.TempDir())
	assert.Equal(t, convert.ExitFatal, code)

	code, _, errOut := exec(t, "-o", t.TempDir())
	assert.Equal(t, convert.ExitFatal, code)
	assert.Contains(t, errOut, "source directory is required")

	code, _, _ = exec(t, "-i", t.TempDir(), "-o", t.TempDir(), "--bogus")
	assert.Equal(t, convert.ExitFatal, code)

	code, _, _ = exec(t, "-i", t.TempDir(), "-o", t.TempDir(), "-j", "0")
	assert.Equal(t, convert.ExitFatal, code)
}

func TestConfigFileAndOverride(t *testing.T) {
	src, dst, other := t.TempDir(), t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.gltf"), []byte(scene), 0644))
	cfg := filepath.Join(t.TempDir(), "i3m.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(
		"source = \""+filepath.ToSlash(src)+"\"\ndest = \""+filepath.ToSlash(other)+"\"\ntarget_ext = \".json\"\n"), 0644))

	code, _, _ := exec(t, "-c", cfg, "-o", dst, "--log-format", "json", "-v")
	assert.Equal(t, convert.ExitOK, code)
	assert.FileExists(t, filepath.Join(dst, "a.json"))
	entries, err := os.ReadDir(other)
	require.NoError(t, err)
	assert.Empty(t, entries, "flag overrides config dest")
}
