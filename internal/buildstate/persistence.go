package buildstate

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"incrementum/internal/codec"
)

// Load reads and decodes the BuildState at stateFile. A missing file and an
// undecodable file are both reported as errors so the caller (Manager) can
// decide, per spec.md §7's Decode kind, whether to log a warning — only a
// file that exists but fails to decode warrants one.
func Load(fs afero.Fs, stateFile string) (*BuildState, error) {
	info, err := fs.Stat(stateFile)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(fs, stateFile)
	if err != nil {
		return nil, err
	}

	var p persisted
	if err := codec.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", stateFile, err)
	}

	b := New(fs, stateFile)
	b.Configuration = p.Configuration
	if p.Inputs != nil {
		b.Inputs = p.Inputs
	}
	if p.UserValues != nil {
		b.UserValues = p.UserValues
	}
	b.loaded = true
	b.loadedModTime = info.ModTime().UnixNano()
	b.loadedSize = info.Size()
	return b, nil
}

// IsStale reports whether the on-disk state file has been modified since
// this instance was loaded (spec.md §3, §5): detected by mtime or length
// mismatch, or by the file having disappeared.
func (b *BuildState) IsStale() bool {
	if !b.loaded {
		return false
	}
	info, err := b.fs.Stat(b.StateFile)
	if err != nil {
		return true
	}
	return info.ModTime().UnixNano() != b.loadedModTime || info.Size() != b.loadedSize
}

// Save persists the BuildState atomically via write-to-temp + rename
// (spec.md §4.2). It proceeds even when IsStale reports a concurrent
// modification — the caller is responsible for logging that event before
// calling Save, matching the propagation policy in spec.md §7.
func (b *BuildState) Save() error {
	data, err := codec.Marshal(persisted{
		Configuration: b.Configuration,
		Inputs:        b.Inputs,
		UserValues:    b.UserValues,
	})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := parentDir(b.StateFile)
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := afero.TempFile(b.fs, dir, "state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = b.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := b.fs.Rename(tmpName, b.StateFile); err != nil {
		return fmt.Errorf("rename state file into place: %w", err)
	}
	committed = true

	if info, err := b.fs.Stat(b.StateFile); err == nil {
		b.loaded = true
		b.loadedModTime = info.ModTime().UnixNano()
		b.loadedSize = info.Size()
	}
	return nil
}

// Destroy removes the state file from disk, forcing the next build to be
// full (spec.md §4.3 "Close").
func Destroy(fs afero.Fs, stateFile string) error {
	err := fs.Remove(stateFile)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func parentDir(path string) string {
	dir := path
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == '/' {
			return dir[:i]
		}
	}
	return "."
}
