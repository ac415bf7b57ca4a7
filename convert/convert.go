// Package convert drives the conversion of engine scene files into i3m
// documents, one file or a whole directory tree at a time.
package convert

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/netisu/i3m"
	"github.com/netisu/i3m/loader"
	"github.com/netisu/i3m/scene"
)

// Kind classifies a per-file failure.
type Kind string

const (
	KindLoad          Kind = "load"
	KindStructure     Kind = "structure"
	KindSerialization Kind = "serialization"
	KindIO            Kind = "io"
	KindCanceled      Kind = "canceled"
	KindUnknown       Kind = "unknown"
)

// Classify returns the kind of a conversion error.
func Classify(err error) Kind {
	var (
		lerr *loader.LoadError
		serr *scene.StructureError
		xerr *i3m.SerializationError
		ierr *i3m.IOError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &lerr):
		return KindLoad
	case errors.As(err, &serr):
		return KindStructure
	case errors.As(err, &xerr):
		return KindSerialization
	case errors.As(err, &ierr):
		return KindIO
	default:
		return KindUnknown
	}
}

// Result is the outcome of converting one file.
type Result struct {
	Source   string
	Dest     string // empty for Convert
	Doc      *i3m.Document
	Warnings []scene.Warning
}

// Converter converts source files with the loaders of a registry.
// A Converter only holds read-only state and is safe for concurrent use.
type Converter struct {
	Registry *loader.Registry
	Env      *loader.Env
	Logger   *slog.Logger

	// DryRun skips creating directories and writing files.
	DryRun bool
}

func (c *Converter) log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// Convert loads src and builds its document.
func (c *Converter) Convert(ctx context.Context, src string) (*Result, error) {
	g, err := c.Registry.Request(ctx, c.Env, src)
	if err != nil {
		return nil, err
	}
	views, err := scene.Traverse(g)
	if err != nil {
		return nil, err
	}
	tree, err := scene.Build(views)
	if err != nil {
		return nil, err
	}
	doc := &i3m.Document{
		Nodes:  tree.Roots,
		Assets: scene.CollectAssets(g, views),
	}
	if tree.Roots == nil {
		doc.Nodes = []*i3m.Node{}
	}
	for _, w := range tree.Warnings {
		c.log().Warn("suspicious node", "path", src, "node", w.Index, "name", w.Name, "msg", w.Msg)
	}
	return &Result{Source: src, Doc: doc, Warnings: tree.Warnings}, nil
}

// ConvertFile converts src and writes the document to dst, creating
// dst's parent directories as needed.
func (c *Converter) ConvertFile(ctx context.Context, src, dst string) (*Result, error) {
	res, err := c.Convert(ctx, src)
	if err != nil {
		return nil, err
	}
	res.Dest = dst
	if c.DryRun {
		// Still catch documents that cannot be encoded.
		if err := res.Doc.Validate(); err != nil {
			return nil, err
		}
		return res, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, &i3m.IOError{Op: "mkdir", Path: filepath.Dir(dst), Err: err}
	}
	if err := i3m.WriteFile(dst, res.Doc); err != nil {
		return nil, err
	}
	return res, nil
}
