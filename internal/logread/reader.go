// Package logread reads action log files written by the appender: dumping
// the active file and its rotated generations, and following appends live.
// It holds no lock against the writer, so it tolerates a partial trailing
// line from an in-flight write.
package logread

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"
)

// zstd frame magic; rotated generations archived out-of-band are read
// transparently.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// DumpOptions filters dump output.
type DumpOptions struct {
	Tool           string // keep only records for this tool
	Status         string // keep only records with this status
	IncludeBackups bool   // include rotated generations, oldest first
}

// Reader reads one action log and its rotated generations.
type Reader struct {
	path   string
	parser fastjson.ParserPool
}

// New creates a reader for the active log file at path.
func New(path string) *Reader {
	return &Reader{path: path}
}

// Dump writes matching records to w, one line each. With IncludeBackups the
// rotated generations come first, oldest to newest, so output is in rough
// append order.
func (r *Reader) Dump(w io.Writer, opts DumpOptions) error {
	paths := []string{}
	if opts.IncludeBackups {
		paths = append(paths, r.generationPaths()...)
	}
	paths = append(paths, r.path)

	for _, p := range paths {
		lines, err := readLines(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		for _, line := range lines {
			if !r.matches(line, opts) {
				continue
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return err
			}
		}
	}
	return nil
}

// Recent returns up to limit most recent well-formed records from the active
// file, oldest first. Corrupt or partial lines are skipped.
func (r *Reader) Recent(limit int) ([][]byte, error) {
	lines, err := readLines(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	valid := make([][]byte, 0, len(lines))
	for _, line := range lines {
		if r.matches(line, DumpOptions{}) {
			valid = append(valid, line)
		}
	}
	if limit > 0 && len(valid) > limit {
		valid = valid[len(valid)-limit:]
	}
	return valid, nil
}

// Follow tails the active file from its current end, invoking fn for each
// complete appended line. The line buffer is only valid during the call.
// Follow returns when ctx is done or the watcher fails. If the file shrinks
// (rotation) the offset resets to the fresh file's start.
func (r *Reader) Follow(ctx context.Context, fn func(line []byte) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var offset int64
	if info, err := os.Stat(r.path); err == nil {
		offset = info.Size()
	}
	var pending []byte

	drain := func() error {
		f, err := os.Open(r.path)
		if err != nil {
			if os.IsNotExist(err) {
				offset = 0
				return nil
			}
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.Size() < offset {
			// Active file was rotated out; start over on the fresh file.
			offset = 0
			pending = pending[:0]
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		offset += int64(len(data))
		pending = append(pending, data...)

		for {
			idx := bytes.IndexByte(pending, '\n')
			if idx < 0 {
				return nil
			}
			line := pending[:idx]
			if len(bytes.TrimSpace(line)) > 0 {
				if err := fn(line); err != nil {
					return err
				}
			}
			pending = pending[idx+1:]
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := drain(); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// generationPaths lists existing rotated generations, oldest first. For each
// generation the plain file is preferred, then a .zst archive of it.
func (r *Reader) generationPaths() []string {
	var newestFirst []string
	for i := 1; ; i++ {
		p := fmt.Sprintf("%s.%d", r.path, i)
		if _, err := os.Stat(p); err == nil {
			newestFirst = append(newestFirst, p)
			continue
		}
		if _, err := os.Stat(p + ".zst"); err == nil {
			newestFirst = append(newestFirst, p+".zst")
			continue
		}
		break
	}
	oldestFirst := make([]string, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		oldestFirst = append(oldestFirst, newestFirst[i])
	}
	return oldestFirst
}

// matches parses line and applies the filters. Lines that do not parse as
// JSON objects are treated as corrupt and filtered out.
func (r *Reader) matches(line []byte, opts DumpOptions) bool {
	p := r.parser.Get()
	defer r.parser.Put(p)

	v, err := p.ParseBytes(line)
	if err != nil || v.Type() != fastjson.TypeObject {
		return false
	}
	if opts.Tool != "" && string(v.GetStringBytes("tool")) != opts.Tool {
		return false
	}
	if opts.Status != "" && string(v.GetStringBytes("status")) != opts.Status {
		return false
	}
	return true
}

// readLines returns the complete lines of the file at path, decompressing
// zstd-archived files. A trailing chunk without a newline is dropped: it is
// either an in-flight write or a torn one, and the next read will see it
// completed.
func readLines(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
	}

	var lines [][]byte
	for len(data) > 0 {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := data[:idx]
		data = data[idx+1:]
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
