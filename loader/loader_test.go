package loader

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netisu/i3m/scene"
)

type emptyGraph struct{ tag string }

func (emptyGraph) NodeCount() int            { return 0 }
func (emptyGraph) Node(i int) scene.NodeView { return scene.NodeView{} }

func tagged(tag string) Loader {
	return LoaderFunc(func(ctx context.Context, env *Env, path string) (scene.Graph, error) {
		return emptyGraph{tag: tag}, nil
	})
}

func write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestRequestByExtension(t *testing.T) {
	r := NewRegistry()
	r.Register("SCN", tagged("scn"))
	g, err := r.Request(context.Background(), nil, write(t, "a.scn", []byte("{}")))
	require.NoError(t, err)
	assert.Equal(t, "scn", g.(emptyGraph).tag)
	assert.Equal(t, []string{".scn"}, r.Extensions())
}

func TestRequestSniffed(t *testing.T) {
	r := NewRegistry()
	r.Register(".scn", tagged("scn"))
	r.Register(".tsnf", tagged("tsnf"))
	r.Sniff(".tsnf", "application/x-test-sniff", func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("TSNF"))
	})

	g, err := r.Request(context.Background(), nil, write(t, "misnamed.scn", []byte("TSNF....")))
	require.NoError(t, err)
	assert.Equal(t, "tsnf", g.(emptyGraph).tag)

	g, err = r.Request(context.Background(), nil, write(t, "plain.scn", []byte("{}")))
	require.NoError(t, err)
	assert.Equal(t, "scn", g.(emptyGraph).tag)
}

func TestRequestErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(".scn", LoaderFunc(func(ctx context.Context, env *Env, path string) (scene.Graph, error) {
		return nil, Invalid("bad version %d", 9)
	}))
	ctx := context.Background()

	_, err := r.Request(ctx, nil, filepath.Join(t.TempDir(), "missing.scn"))
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = r.Request(ctx, nil, write(t, "a.txt", []byte("x")))
	assert.ErrorIs(t, err, ErrUnsupported)

	path := write(t, "a.scn", []byte("x"))
	_, err = r.Request(ctx, nil, path)
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, path, lerr.Path)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "bad version 9")

	dir := filepath.Join(t.TempDir(), "d.scn")
	require.NoError(t, os.Mkdir(dir, 0755))
	_, err = r.Request(ctx, nil, dir)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestRequestCancelled(t *testing.T) {
	r := NewRegistry()
	r.Register(".scn", tagged("scn"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Request(ctx, nil, write(t, "a.scn", []byte("{}")))
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEnvLog(t *testing.T) {
	var env *Env
	assert.NotNil(t, env.Log())
	assert.NotNil(t, (&Env{}).Log())
}

func TestSniffPerRegistry(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	for _, r := range []*Registry{a, b} {
		r.Register(".scn", tagged("scn"))
		r.Register(".tsnr", tagged("tsnr"))
	}
	a.Sniff(".tsnr", "application/x-test-a", func(h []byte) bool { return bytes.HasPrefix(h, []byte("AAAA")) })
	b.Sniff(".tsnr", "application/x-test-b", func(h []byte) bool { return bytes.HasPrefix(h, []byte("BBBB")) })

	l, ok := a.Lookup("x.scn", []byte("AAAA"))
	require.True(t, ok)
	g, _ := l.Load(context.Background(), nil, "x.scn")
	assert.Equal(t, "tsnr", g.(emptyGraph).tag)
	l, _ = a.Lookup("x.scn", []byte("BBBB"))
	g, _ = l.Load(context.Background(), nil, "x.scn")
	assert.Equal(t, "scn", g.(emptyGraph).tag)

	l, _ = b.Lookup("x.scn", []byte("BBBB"))
	g, _ = l.Load(context.Background(), nil, "x.scn")
	assert.Equal(t, "tsnr", g.(emptyGraph).tag)

	// A later matcher for the same extension replaces the earlier one.
	a.Sniff(".tsnr", "application/x-test-a", func(h []byte) bool { return bytes.HasPrefix(h, []byte("CCCC")) })
	l, _ = a.Lookup("x.scn", []byte("AAAA"))
	g, _ = l.Load(context.Background(), nil, "x.scn")
	assert.Equal(t, "scn", g.(emptyGraph).tag)
}

func TestInvalidWrapsCause(t *testing.T) {
	err := Invalid("open buffer: %w", fs.ErrNotExist)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "invalid source format: open buffer: file does not exist", err.Error())
}
