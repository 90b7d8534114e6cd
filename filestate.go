package incrementum

import "incrementum/internal/fingerprint"

// FileState is a fingerprint of a filesystem entry captured at a point in
// time (spec.md §3).
type FileState = fingerprint.FileState
