package convert

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long a changed file must be left alone before it is
// converted. Events for the same file within that time are coalesced.
var settle = 250 * time.Millisecond

// Watch reconverts source files under opts.Source whenever they are
// created or written, until ctx is done. New directories are watched
// as they appear. Per-file failures are logged and recorded in rep; a
// later successful conversion of the same file clears them.
// Callers normally Run first to convert the existing tree.
func Watch(ctx context.Context, c *Converter, opts Options, rep *Report) error {
	if err := checkRoots(opts, c.DryRun); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fatalf("watcher: %v", err)
	}
	defer w.Close()

	if err := watchTree(w, opts.Source); err != nil {
		return fatalf("watch %s: %v", opts.Source, err)
	}
	c.log().Info("watching", "source", opts.Source)

	var (
		pending = make(map[string]*time.Timer)
		ready   = make(chan string)
		stop    = make(chan struct{})
	)
	defer func() {
		close(stop)
		for _, t := range pending {
			t.Stop()
		}
	}()
	schedule := func(path string) {
		if _, ok := pending[path]; ok {
			return
		}
		pending[path] = time.AfterFunc(settle, func() {
			select {
			case ready <- path:
			case <-stop:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-ready:
			delete(pending, path)
			c.runOne(ctx, rep, opts, path)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			st, err := os.Stat(ev.Name)
			if err != nil {
				continue
			}
			if st.IsDir() {
				if err := watchTree(w, ev.Name); err != nil {
					c.log().Error("watch failed", "path", ev.Name, "err", err)
				}
				// Files may have landed before the directory was watched.
				files, _, _ := Discover(ev.Name, opts.Extensions)
				for _, f := range files {
					schedule(f)
				}
				continue
			}
			if slices.Contains(opts.Extensions, strings.ToLower(filepath.Ext(ev.Name))) {
				schedule(ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.log().Error("watcher", "err", err)
		}
	}
}

func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
