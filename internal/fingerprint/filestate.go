// Package fingerprint captures point-in-time filesystem probes and content
// digests used by the build-avoidance engine to decide whether an entry has
// changed since the last commit.
package fingerprint

import (
	"os"

	"github.com/spf13/afero"
)

// FileState is a fingerprint of a filesystem entry captured at a point in
// time. Two states are equal iff all three fields match; a state is never
// mutated after capture.
//
// From spec.md §3 DATA MODEL:
//
//	FileState. Fingerprint of a filesystem entry: {size: u64, mtime: i64,
//	is_directory: bool}.
type FileState struct {
	Size        int64 `json:"size"`
	ModTimeUnix int64 `json:"mtime"`
	IsDirectory bool  `json:"is_directory"`
}

// Probe captures the FileState of path as it currently exists on fs.
// A non-existent path yields ErrNotExist unmodified so callers can
// distinguish "gone" from "probe failure".
func Probe(fs afero.Fs, path string) (FileState, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return FileState{}, err
	}
	return FileState{
		Size:        info.Size(),
		ModTimeUnix: info.ModTime().UnixNano(),
		IsDirectory: info.IsDir(),
	}, nil
}

// Exists reports whether Probe would succeed for path.
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// IsNotExist reports whether err represents a missing filesystem entry.
func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// Changed reports whether current differs from stored under the equality
// rule in spec.md §3: all three fields must match for the entries to be
// considered identical.
func Changed(stored, current FileState) bool {
	return stored != current
}
