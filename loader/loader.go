// Package loader is the boundary between the converter and the engine
// formats it reads: it resolves a source file to a scene.Graph.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"github.com/netisu/i3m/scene"
)

var (
	// ErrUnsupported reports a file no registered loader can read.
	ErrUnsupported = errors.New("unsupported source format")

	// ErrInvalidFormat reports a file that fails format or version
	// validation.
	ErrInvalidFormat = errors.New("invalid source format")
)

// LoadError reports a source file that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return "load " + e.Path + ": " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// Env is the resource-loading environment of a run.
// It is passed explicitly on every request and must not be mutated
// while requests are in flight.
type Env struct {
	Logger *slog.Logger

	// ValidateMesh makes loaders decode embedded mesh payloads as part
	// of format validation.
	ValidateMesh bool
}

// Log returns the environment's logger, never nil.
func (e *Env) Log() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Loader reads one source format.
type Loader interface {
	// Load returns the scene graph stored at path.
	// It blocks until every sub-resource has been loaded.
	Load(ctx context.Context, env *Env, path string) (scene.Graph, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, env *Env, path string) (scene.Graph, error)

func (f LoaderFunc) Load(ctx context.Context, env *Env, path string) (scene.Graph, error) {
	return f(ctx, env, path)
}

// sniffLen is the header length filetype needs to match all its kinds.
const sniffLen = 262

// Registry maps source formats to loaders.
// Lookups are safe for concurrent use once registration is done.
type Registry struct {
	byExt map[string]Loader
	sniff matchers.Map
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Loader), sniff: make(matchers.Map)}
}

func normExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Register makes l the loader of files with extension ext.
func (r *Registry) Register(ext string, l Loader) {
	r.byExt[normExt(ext)] = l
}

// Sniff registers a content matcher for files of extension ext, so a
// file is routed to ext's loader whenever its header matches,
// whatever its name. Matchers belong to r and replace any earlier
// matcher for ext; matchers of different formats must not overlap.
func (r *Registry) Sniff(ext, mime string, m func(header []byte) bool) {
	kind := filetype.NewType(strings.TrimPrefix(normExt(ext), "."), mime)
	for k := range r.sniff {
		if k.Extension == kind.Extension {
			delete(r.sniff, k)
		}
	}
	r.sniff[kind] = m
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Lookup picks the loader for path from its header, falling back to
// its extension.
func (r *Registry) Lookup(path string, header []byte) (Loader, bool) {
	if len(header) > 0 {
		if kind := filetype.MatchMap(header, r.sniff); kind != filetype.Unknown {
			if l, ok := r.byExt["."+kind.Extension]; ok {
				return l, true
			}
		}
	}
	l, ok := r.byExt[normExt(filepath.Ext(path))]
	return l, ok
}

// Request loads the scene graph stored at path.
// Every failure is reported as a *LoadError.
func (r *Registry) Request(ctx context.Context, env *Env, path string) (scene.Graph, error) {
	header, err := readHeader(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	l, ok := r.Lookup(path, header)
	if !ok {
		return nil, &LoadError{Path: path, Err: ErrUnsupported}
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	env.Log().Debug("loading", "path", path)
	g, err := l.Load(ctx, env, path)
	if err != nil {
		var lerr *LoadError
		if errors.As(err, &lerr) {
			return nil, err
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return g, nil
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: is a directory", ErrInvalidFormat)
	}
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// Invalid returns an error wrapping ErrInvalidFormat. The format may
// use %w to wrap the underlying cause as well.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidFormat}, args...)...)
}
