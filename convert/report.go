package convert

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// Exit codes of a converter process.
const (
	ExitOK     = 0
	ExitFailed = 1 // at least one file failed or was skipped
	ExitFatal  = 2 // the run could not start
)

// Failure is a file that could not be converted.
type Failure struct {
	Path string
	Kind Kind
	Err  error
}

// Report tallies a run. It is safe for concurrent use.
type Report struct {
	mu sync.Mutex

	Succeeded int
	Failed    int
	Skipped   int
	Failures  []Failure
	Duration  time.Duration
}

// succeed records a converted file. Earlier failures of the same file
// are dropped, so a file fixed while watching no longer counts.
func (r *Report) succeed(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded++
	n := len(r.Failures)
	r.Failures = slices.DeleteFunc(r.Failures, func(f Failure) bool { return f.Path == path })
	r.Failed -= n - len(r.Failures)
}

func (r *Report) skip() {
	r.mu.Lock()
	r.Skipped++
	r.mu.Unlock()
}

func (r *Report) fail(f Failure) {
	r.mu.Lock()
	r.Failed++
	r.Failures = append(r.Failures, f)
	r.mu.Unlock()
}

// ExitCode returns the process exit code for r.
func (r *Report) ExitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Failed > 0 || r.Skipped > 0 {
		return ExitFailed
	}
	return ExitOK
}

// Print writes a summary of r to w, coloured when w is a terminal.
func (r *Report) Print(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := termenv.NewOutput(w)
	ok := out.String("✓").Foreground(termenv.ANSIGreen)
	bad := out.String("✗").Foreground(termenv.ANSIRed)

	fmt.Fprintf(w, "\nConversion completed in %v\n", r.Duration.Truncate(time.Millisecond))
	fmt.Fprintf(w, "%s Successfully converted: %d\n", ok, r.Succeeded)
	fmt.Fprintf(w, "%s Failed: %d\n", bad, r.Failed)
	if r.Skipped > 0 {
		fmt.Fprintf(w, "%s Skipped: %d\n", out.String("-").Foreground(termenv.ANSIYellow), r.Skipped)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s [%s] %v\n", f.Path, out.String(string(f.Kind)).Bold(), f.Err)
	}
}
