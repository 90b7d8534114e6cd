package incrementum

import "incrementum/internal/pathset"

// PathSet is a selection rooted at a base directory with two disjoint
// predicates (include globs, exclude globs) and two boolean flags (include
// files, include directories). See spec.md §3.
type PathSet = pathset.PathSet

// NewPathSet constructs a PathSet. A nil/empty includes means "match all";
// a nil/empty excludes means "match none". Defaults: include files, exclude
// directories (spec.md §6).
func NewPathSet(baseDir string, includes, excludes []string) PathSet {
	return pathset.New(baseDir, includes, excludes)
}
