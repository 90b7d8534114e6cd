// Package buildstate implements the persisted input/output binding model
// described in spec.md §3–§4.2: fingerprints, referenced-input tracking,
// the configuration digest, and the mutations a BuildContext commit applies.
package buildstate

import (
	"github.com/spf13/afero"

	"incrementum/internal/diagnostics"
	"incrementum/internal/fingerprint"
)

// InputRecord is the persisted per-input tuple described in spec.md §3.
type InputRecord struct {
	Outputs                []string                          `json:"outputs"`
	Referenced              []string                          `json:"referenced,omitempty"`
	Fingerprint             fingerprint.FileState              `json:"fingerprint"`
	ReferencedFingerprints  map[string]fingerprint.FileState   `json:"referenced_fingerprints,omitempty"`
	Messages                []diagnostics.Message              `json:"messages,omitempty"`
}

// persisted is the on-disk shape encoded/decoded by internal/codec. It
// excludes the runtime-only fields (filesystem handle, staleness baseline)
// that BuildState carries.
type persisted struct {
	Configuration []byte                  `json:"configuration,omitempty"`
	Inputs        map[string]*InputRecord `json:"inputs"`
	UserValues    map[string][]byte       `json:"user_values,omitempty"`
}

// BuildState is the persisted model owned by the Manager's state cache and
// borrowed mutably by exactly one live BuildContext at a time (spec.md §5).
type BuildState struct {
	fs        afero.Fs
	StateFile string

	Configuration []byte
	Inputs        map[string]*InputRecord
	UserValues    map[string][]byte

	loaded          bool
	loadedModTime   int64
	loadedSize      int64
	fullBuildReset  bool
}

// New constructs an empty BuildState for stateFile, used when no prior state
// exists or a full build discards it.
func New(fs afero.Fs, stateFile string) *BuildState {
	return &BuildState{
		fs:         fs,
		StateFile:  stateFile,
		Inputs:     make(map[string]*InputRecord),
		UserValues: make(map[string][]byte),
	}
}

func (b *BuildState) ensureRecord(input string) *InputRecord {
	rec, ok := b.Inputs[input]
	if !ok {
		rec = &InputRecord{}
		b.Inputs[input] = rec
	}
	return rec
}
