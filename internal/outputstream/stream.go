// Package outputstream implements the write-through-compare output stream
// described in spec.md §4.5: a byte-identical rewrite of an existing file is
// treated as a no-op, leaving mtime untouched.
package outputstream

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Notify is called once, at the first Close, with the final modified
// verdict; it is not called when that Close returns an error.
type Notify func(modified bool)

// Stream buffers written bytes and, at Close, compares them against the
// destination file's current content. Buffering the whole write (rather than
// comparing strictly byte-for-byte in tandem with each Write call) is a
// deliberate simplification: it produces the same observable outcome
// (untouched file + unmodified notification on an identical write) while
// avoiding partial-file state if a caller abandons the stream without
// closing it.
type Stream struct {
	fs     afero.Fs
	path   string
	notify Notify
	buf    bytes.Buffer
	closed bool
}

// New returns a Stream targeting path on fs. Parent directories are created
// lazily, on the first successful Close that actually needs to write.
func New(fs afero.Fs, path string, notify Notify) *Stream {
	return &Stream{fs: fs, path: path, notify: notify}
}

// Write implements io.Writer, buffering content for the eventual compare.
func (s *Stream) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Close compares the buffered content against the existing file. If
// identical in both length and bytes, the file is left untouched and the
// stream reports modified=false; otherwise it truncates and rewrites the
// file atomically and reports modified=true. Close is idempotent.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	existing, err := afero.ReadFile(s.fs, s.path)
	identical := err == nil && bytes.Equal(existing, s.buf.Bytes())

	if identical {
		if s.notify != nil {
			s.notify(false)
		}
		return nil
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create output parent dir: %w", err)
	}
	if err := writeAtomic(s.fs, s.path, s.buf.Bytes()); err != nil {
		return fmt.Errorf("write output %s: %w", s.path, err)
	}

	if s.notify != nil {
		s.notify(true)
	}
	return nil
}

func writeAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fs, dir, "out-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := fs.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
