package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrFatal marks errors that prevent a run from starting.
var ErrFatal = errors.New("fatal")

// Options configures a directory run.
type Options struct {
	Source      string
	Dest        string
	Extensions  []string // lower case, with leading dot
	TargetExt   string
	Concurrency int
}

func fatalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrFatal}, args...)...)
}

// Discover returns the files under root whose extension is one of exts,
// sorted. Unreadable subtrees do not stop the walk; they are returned
// as failures.
func Discover(root string, exts []string) ([]string, []Failure, error) {
	var (
		files    []string
		failures []Failure
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			failures = append(failures, Failure{Path: path, Kind: KindIO, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	slices.Sort(files)
	return files, failures, nil
}

// Mirror returns the destination of file: its path relative to src,
// joined to dst, with the extension replaced by targetExt.
func Mirror(src, dst, file, targetExt string) (string, error) {
	rel, err := filepath.Rel(src, file)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", file, src)
	}
	return filepath.Join(dst, strings.TrimSuffix(rel, filepath.Ext(rel))+targetExt), nil
}

// checkRoots validates the source root and creates the destination
// root. With dryRun the destination is only checked, not created.
func checkRoots(opts Options, dryRun bool) error {
	st, err := os.Stat(opts.Source)
	if err != nil {
		return fatalf("source directory: %v", err)
	}
	if !st.IsDir() {
		return fatalf("source %s is not a directory", opts.Source)
	}
	if dryRun {
		st, err = os.Stat(opts.Dest)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil
		case err != nil:
			return fatalf("destination directory: %v", err)
		case !st.IsDir():
			return fatalf("destination %s is not a directory", opts.Dest)
		}
		return nil
	}
	if err := os.MkdirAll(opts.Dest, 0755); err != nil {
		return fatalf("destination directory: %v", err)
	}
	return nil
}

// Run converts every source file under opts.Source into opts.Dest.
// Per-file failures are recorded in the report and do not stop the
// run; the returned error is non-nil only for fatal preconditions.
// Once ctx is done no new file is started and the remaining files are
// counted as skipped; finished outputs are left intact.
func Run(ctx context.Context, c *Converter, opts Options) (*Report, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if err := checkRoots(opts, c.DryRun); err != nil {
		return nil, err
	}
	files, failures, err := Discover(opts.Source, opts.Extensions)
	if err != nil {
		return nil, fatalf("scan source directory: %v", err)
	}

	start := time.Now()
	rep := &Report{}
	for _, f := range failures {
		rep.fail(f)
		c.log().Error("scan failed", "path", f.Path, "err", f.Err)
	}
	c.log().Info("converting", "files", len(files), "source", opts.Source, "dest", opts.Dest,
		"workers", opts.Concurrency, "dry_run", c.DryRun)

	tasks := make(chan string, len(files))
	for _, file := range files {
		tasks <- file
	}
	close(tasks)

	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				if ctx.Err() != nil {
					rep.skip()
					continue
				}
				c.runOne(ctx, rep, opts, file)
			}
		}()
	}
	wg.Wait()

	rep.Duration = time.Since(start)
	return rep, nil
}

func (c *Converter) runOne(ctx context.Context, rep *Report, opts Options, file string) {
	dst, err := Mirror(opts.Source, opts.Dest, file, opts.TargetExt)
	if err == nil {
		c.log().Debug("converting file", "source", file, "dest", dst)
		_, err = c.ConvertFile(ctx, file, dst)
	}
	if err != nil {
		kind := Classify(err)
		if kind == KindCanceled {
			rep.skip()
			return
		}
		rep.fail(Failure{Path: file, Kind: kind, Err: err})
		c.log().Error("conversion failed", "path", file, "kind", kind, "err", err)
		return
	}
	rep.succeed(file)
	c.log().Debug("converted", "source", file, "dest", dst)
}
