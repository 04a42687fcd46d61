// Package writer persists output artifacts with an escalating-fallback
// strategy: bounded retries at the requested path, then a timestamp-suffixed
// sibling, then the platform temporary directory, then a terminal failure.
package writer

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/meridian-geo/landcover.report/internal/timeutil"
)

const (
	// DefaultAttempts is the number of tries at the requested path.
	DefaultAttempts = 3
	// DefaultRetryDelay is the fixed pause between those tries.
	DefaultRetryDelay = time.Second
)

// ErrTransient marks a failure as retriable. Wrap errors with
// fmt.Errorf("...: %w", writer.ErrTransient) when a custom write operation
// wants the retry loop to keep going.
var ErrTransient = errors.New("transient write failure")

// WriteFunc performs one write attempt, parameterised solely by the final
// path. The caller captures the content to write.
type WriteFunc func(path string) error

// ResilientWriter retries and escalates file writes. The zero value is not
// usable; call New.
type ResilientWriter struct {
	Attempts int
	Delay    time.Duration

	clock timeutil.Clock
}

// New returns a ResilientWriter with default retry policy.
func New() *ResilientWriter {
	return &ResilientWriter{
		Attempts: DefaultAttempts,
		Delay:    DefaultRetryDelay,
		clock:    timeutil.NewRealClock(),
	}
}

// WithClock overrides the writer's clock.
func (rw *ResilientWriter) WithClock(c timeutil.Clock) *ResilientWriter {
	rw.clock = c
	return rw
}

// WithRetryPolicy overrides attempt count and inter-attempt delay.
func (rw *ResilientWriter) WithRetryPolicy(attempts int, delay time.Duration) *ResilientWriter {
	rw.Attempts = attempts
	rw.Delay = delay
	return rw
}

// Write runs op against path, retrying and escalating per the writer's
// policy. It returns the path actually written, which may differ from the
// requested path; callers must not assume they are equal.
func (rw *ResilientWriter) Write(path string, op WriteFunc) (string, error) {
	attempts := rw.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			rw.clock.Sleep(rw.Delay)
		}
		err := op(path)
		if err == nil {
			return path, nil
		}
		lastErr = err
		if !Retriable(err) {
			// a non-transient failure will not heal; go straight to
			// the escalation ladder
			log.Printf("[ResilientWriter] non-retriable failure at %s: %v", path, err)
			break
		}
		log.Printf("[ResilientWriter] attempt %d/%d at %s failed: %v", i+1, attempts, path, err)
	}

	// rung 1: timestamp-suffixed sibling in the same directory
	alt := rw.timestampedPath(path)
	if err := op(alt); err == nil {
		log.Printf("[ResilientWriter] wrote %s after failures at %s", alt, path)
		return alt, nil
	} else {
		lastErr = err
	}

	// rung 2: original file name inside the temporary directory
	tmp := filepath.Join(os.TempDir(), filepath.Base(path))
	if err := op(tmp); err == nil {
		log.Printf("[ResilientWriter] wrote %s after failures at %s", tmp, path)
		return tmp, nil
	} else {
		lastErr = err
	}

	return "", fmt.Errorf("all write locations exhausted for %s: %w", path, lastErr)
}

// timestampedPath inserts a timestamp between the file stem and extension:
// out/labels.png becomes out/labels_20260829_153000.png.
func (rw *ResilientWriter) timestampedPath(path string) string {
	ext := filepath.Ext(path)
	stem := path[:len(path)-len(ext)]
	return fmt.Sprintf("%s_%s%s", stem, rw.clock.Now().Format("20060102_150405"), ext)
}

// Retriable reports whether an error is a transient access or lock failure
// worth retrying at the same path. Anything else aborts the retry loop.
func Retriable(err error) bool {
	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.EACCES, syscall.EAGAIN, syscall.EBUSY, syscall.ETXTBSY} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// BytesOp returns a WriteFunc that writes data through the given filesystem,
// creating the destination directory first.
func BytesOp(fsys FileSystem, data []byte) WriteFunc {
	return func(path string) error {
		if dir := filepath.Dir(path); dir != "." {
			if err := fsys.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", dir, err)
			}
		}
		return fsys.WriteFile(path, data, 0o644)
	}
}
