package actionlog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// DefaultMaxBytes is the rotation threshold used when none is configured.
const DefaultMaxBytes = 5 * 1024 * 1024

// Appender is an append-only JSONL log with size-based rotation. One mutex
// guards the whole check-rotate-write sequence, so concurrent appends can
// never interleave within a line or observe a stale size mid-rotation.
//
// The appender never fails its caller: logging must not break the operation
// being logged. Internal failures are reported on the diagnostic log and the
// record is dropped, not retried or buffered.
type Appender struct {
	path     string
	maxBytes int64
	backups  int
	metrics  *Metrics
	disabled bool
	mu       sync.Mutex
}

// Option configures an Appender.
type Option func(*Appender)

// WithMaxBytes sets the rotation threshold in bytes.
func WithMaxBytes(n int64) Option {
	return func(a *Appender) {
		if n > 0 {
			a.maxBytes = n
		}
	}
}

// WithBackups sets how many rotated generations are retained.
func WithBackups(n int) Option {
	return func(a *Appender) {
		if n >= 1 {
			a.backups = n
		}
	}
}

// WithMetrics attaches counters for appends, drops and rotations.
func WithMetrics(m *Metrics) Option {
	return func(a *Appender) {
		a.metrics = m
	}
}

// NewAppender creates an appender for path, creating the parent directory if
// absent. Construction never fails: if the directory cannot be created the
// appender degrades to a no-op sink rather than aborting the host process.
func NewAppender(path string, opts ...Option) *Appender {
	a := &Appender{
		path:     path,
		maxBytes: DefaultMaxBytes,
		backups:  1,
	}
	for _, opt := range opts {
		opt(a)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("actionlog: cannot create log directory %s, logging disabled: %v", dir, err)
			a.disabled = true
		}
	}
	return a
}

// Path returns the active log file path.
func (a *Appender) Path() string {
	return a.path
}

// Append serializes rec to one newline-terminated line and writes it under
// the rotation lock. Any failure is surfaced only on the diagnostic log.
func (a *Appender) Append(rec Record) {
	if a == nil || a.disabled {
		return
	}

	line, err := rec.MarshalLine()
	if err != nil {
		log.Printf("actionlog: failed to serialize record for %s: %v", rec.Tool, err)
		a.metrics.appendDropped()
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.shouldRotate() {
		a.rotate()
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("actionlog: failed to open action log: %v", err)
		a.metrics.appendDropped()
		return
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		log.Printf("actionlog: failed to write action log: %v", err)
		a.metrics.appendDropped()
		return
	}
	a.metrics.appendWritten()
}

// shouldRotate reports whether the active file has reached the threshold.
// Callers must hold a.mu.
func (a *Appender) shouldRotate() bool {
	info, err := os.Stat(a.path)
	if err != nil {
		return false
	}
	return info.Size() >= a.maxBytes
}

// rotate shifts retained generations up by one (path.1 is always the most
// recently rotated-out content) and renames the active file to path.1.
// A rotation failure is logged and the write proceeds against the original
// file. Callers must hold a.mu.
func (a *Appender) rotate() {
	if _, err := os.Stat(a.path); err != nil {
		return
	}

	oldest := fmt.Sprintf("%s.%d", a.path, a.backups)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		log.Printf("actionlog: failed to drop oldest backup %s: %v", oldest, err)
	}
	for i := a.backups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", a.path, i)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := fmt.Sprintf("%s.%d", a.path, i+1)
		if err := os.Rename(src, dst); err != nil {
			log.Printf("actionlog: failed to shift backup %s: %v", src, err)
		}
	}

	if err := os.Rename(a.path, a.path+".1"); err != nil {
		log.Printf("actionlog: rotation failed: %v", err)
		return
	}
	a.metrics.rotated()
}
