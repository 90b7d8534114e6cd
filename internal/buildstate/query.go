package buildstate

import (
	"bytes"

	"incrementum/internal/fingerprint"
	"incrementum/internal/pathset"
)

// IsConfigurationChanged reports whether digest differs from the stored
// configuration digest, or none is stored yet (spec.md §4.2).
func (b *BuildState) IsConfigurationChanged(digest []byte) bool {
	if b.Configuration == nil {
		return true
	}
	return !bytes.Equal(b.Configuration, digest)
}

// GetValue reads the opaque user-value bag. On a full build the map is
// treated as empty on read (spec.md §4.2) even though writes still land in
// it for the eventual commit.
func (b *BuildState) GetValue(key string, fullBuild bool) ([]byte, bool) {
	if fullBuild {
		return nil, false
	}
	v, ok := b.UserValues[key]
	return v, ok
}

// SetValue stores an opaque user value. The first write of a full build
// discards whatever was previously persisted, since spec.md §3 states the
// bag is "dropped on any full build" — a full build's writes replace it
// rather than merge into it.
func (b *BuildState) SetValue(key string, value []byte, fullBuild bool) {
	if fullBuild && !b.fullBuildReset {
		b.UserValues = make(map[string][]byte)
		b.fullBuildReset = true
	}
	b.UserValues[key] = value
}

// IsProcessingRequired reports whether path must be reprocessed: it has no
// stored fingerprint, its fingerprint changed, or any referenced input
// recursively requires processing. fullBuild forces true unconditionally
// (spec.md §4.4: "the selection walk itself is still performed").
func (b *BuildState) IsProcessingRequired(path string, fullBuild bool) bool {
	if fullBuild {
		return true
	}
	return b.isProcessingRequired(path, map[string]bool{})
}

func (b *BuildState) isProcessingRequired(path string, visited map[string]bool) bool {
	if visited[path] {
		return false
	}
	visited[path] = true

	rec, ok := b.Inputs[path]
	if !ok {
		return true
	}

	current, err := fingerprint.Probe(b.fs, path)
	if err != nil {
		return true
	}
	if fingerprint.Changed(rec.Fingerprint, current) {
		return true
	}

	for _, ref := range rec.Referenced {
		if _, isTrackedInput := b.Inputs[ref]; isTrackedInput {
			if b.isProcessingRequired(ref, visited) {
				return true
			}
			continue
		}
		fp, tracked := rec.ReferencedFingerprints[ref]
		if !tracked {
			continue
		}
		cur, err := fingerprint.Probe(b.fs, ref)
		if err != nil || fingerprint.Changed(fp, cur) {
			return true
		}
	}

	return false
}

// GetDeletedInputPaths returns the posix-relative path of every input
// tracked under baseDir that is absent from selected (spec.md §4.2), for
// the resolver's post-walk deletion pass.
func (b *BuildState) GetDeletedInputPaths(baseDir string, selected map[string]struct{}) []string {
	var deleted []string
	for input := range b.Inputs {
		rel, ok := pathset.Relativize(baseDir, input)
		if !ok {
			continue
		}
		if _, present := selected[input]; present {
			continue
		}
		deleted = append(deleted, rel)
	}
	return deleted
}
