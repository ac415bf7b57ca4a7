package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i3m.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
source = "scenes"
dest = "out"
extensions = ["gltf"]
concurrency = 8
validate_mesh = true
`), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scenes", cfg.Source)
	assert.Equal(t, "out", cfg.Dest)
	assert.Equal(t, []string{"gltf"}, cfg.Extensions)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.True(t, cfg.ValidateMesh)
	assert.Equal(t, ".i3m", cfg.TargetExt, "defaults survive")

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{".gltf"}, cfg.Extensions)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i3m.yml")
	require.NoError(t, os.WriteFile(path, []byte("source: a\ndest: b\ntarget_ext: .json\nlog_format: json\n"), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Source)
	assert.Equal(t, ".json", cfg.TargetExt)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "i3m.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0644))
	_, err = Load(path)
	assert.Error(t, err)

	path = filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency = [oops"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Default()
		c.Source, c.Dest = "src", "dst"
		return c
	}
	c := valid()
	require.NoError(t, c.Validate())

	cases := map[string]func(*Config){
		"no source":   func(c *Config) { c.Source = "" },
		"no dest":     func(c *Config) { c.Dest = "" },
		"concurrency": func(c *Config) { c.Concurrency = 0 },
		"no exts":     func(c *Config) { c.Extensions = nil },
		"bad ext":     func(c *Config) { c.Extensions = []string{"a.b"} },
		"bare dot":    func(c *Config) { c.TargetExt = "." },
		"clash":       func(c *Config) { c.TargetExt = ".GLB" },
		"log format":  func(c *Config) { c.LogFormat = "xml" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mut(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestExpandPaths(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)
	c := Config{Source: "~/scenes", Dest: "/abs/out"}
	require.NoError(t, c.ExpandPaths())
	assert.Equal(t, filepath.Join(home, "scenes"), c.Source)
	assert.Equal(t, "/abs/out", c.Dest)
}
