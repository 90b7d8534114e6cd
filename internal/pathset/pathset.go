// Package pathset implements the selection type used to describe which
// filesystem entries under a base directory participate in a build.
package pathset

import (
	"path"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
)

// PathSet is a selection rooted at a base directory with two disjoint
// predicates (include globs, exclude globs) and two boolean flags (include
// files, include directories). A path matches iff: some include pattern
// matches (empty include list = match all) AND no exclude pattern matches.
//
// From spec.md §3: "Value-typed; equality is structural; hashable for use as
// a map key."
type PathSet struct {
	BaseDir            string
	Includes           []string
	Excludes           []string
	IncludeFiles       bool
	IncludeDirectories bool
}

// New constructs a PathSet. Nil/empty includes means "match all"; nil/empty
// excludes means "match none". Defaults for the flags, per spec.md §6, are
// IncludeFiles=true, IncludeDirectories=false.
func New(baseDir string, includes, excludes []string) PathSet {
	return PathSet{
		BaseDir:            normalizeBase(baseDir),
		Includes:           copyPatterns(includes),
		Excludes:           copyPatterns(excludes),
		IncludeFiles:       true,
		IncludeDirectories: false,
	}
}

// WithFlags returns a copy of p with the file/directory inclusion flags set
// explicitly.
func (p PathSet) WithFlags(includeFiles, includeDirectories bool) PathSet {
	p.IncludeFiles = includeFiles
	p.IncludeDirectories = includeDirectories
	return p
}

// Clone performs the deep copy required by spec.md §6 ("Copy-construction is
// deep"), used when BuildContext.GetInputs records the queried PathSet.
func (p PathSet) Clone() PathSet {
	return PathSet{
		BaseDir:            p.BaseDir,
		Includes:           copyPatterns(p.Includes),
		Excludes:           copyPatterns(p.Excludes),
		IncludeFiles:       p.IncludeFiles,
		IncludeDirectories: p.IncludeDirectories,
	}
}

// Hash returns a structural hash suitable for using a PathSet as a map key,
// satisfying spec.md §3's "hashable for use as a map key" requirement.
func (p PathSet) Hash() (uint64, error) {
	// hashstructure calls Hash() on any value implementing its Hashable
	// interface, which PathSet does; hashing a method-less copy of the
	// fields keeps it from recursing back into this method.
	type fields PathSet
	return hashstructure.Hash(fields(p), hashstructure.FormatV2, nil)
}

// IsSelected reports whether relPath (posix-style, "/" separated, relative
// to BaseDir) is selected: some include pattern matches (or includes is
// empty) and no exclude pattern matches.
func (p PathSet) IsSelected(relPath string) bool {
	return p.matchesIncludes(relPath) && !p.matchesAny(p.Excludes, relPath)
}

// IsAncestorOfPotentiallySelected reports a conservative affirmative: true
// if any include pattern could still match something under relPath. This is
// a cheap over-approximation — returning true costs a subtree walk but never
// affects correctness (spec.md §4.4).
func (p PathSet) IsAncestorOfPotentiallySelected(relPath string) bool {
	if len(p.Includes) == 0 {
		return true
	}
	for _, pattern := range p.Includes {
		if patternCouldDescend(pattern, relPath) {
			return true
		}
	}
	return false
}

// Satisfies reports whether an absolute path lies under p.BaseDir and its
// relative form is selected by p. Used by the diagnostic-replay step of the
// commit protocol (spec.md §4.3 step 9) to test "belongs to any queried
// PathSet".
func (p PathSet) Satisfies(absPath string) bool {
	rel, ok := Relativize(p.BaseDir, absPath)
	if !ok {
		return false
	}
	return p.IsSelected(rel)
}

func (p PathSet) matchesIncludes(relPath string) bool {
	if len(p.Includes) == 0 {
		return true
	}
	return p.matchesAny(p.Includes, relPath)
}

func (p PathSet) matchesAny(patterns []string, relPath string) bool {
	for _, pattern := range patterns {
		if Match(pattern, relPath) {
			return true
		}
	}
	return false
}

func normalizeBase(baseDir string) string {
	return strings.TrimRight(filepathToSlash(baseDir), "/")
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func copyPatterns(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Relativize returns the posix-style path of target relative to base, and
// true, iff target is base itself or a descendant of base.
func Relativize(base, target string) (string, bool) {
	base = strings.TrimRight(filepathToSlash(base), "/")
	target = filepathToSlash(target)
	if target == base {
		return "", true
	}
	prefix := base + "/"
	if !strings.HasPrefix(target, prefix) {
		return "", false
	}
	return strings.TrimPrefix(target, prefix), true
}

// Join builds an absolute-style path from base and a posix relative path.
func Join(base, rel string) string {
	if rel == "" {
		return base
	}
	return path.Join(filepathToSlash(base), rel)
}
