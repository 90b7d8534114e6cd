// Package resolver walks a directory tree under a PathSet's base directory,
// classifying each candidate entry as selected/dirty/deleted, mirroring the
// scan algorithm of the original DefaultPathSetResolver.
package resolver

import (
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"

	"incrementum/internal/pathset"
)

// Checker supplies the freshness and deletion-detection predicates the
// resolver needs but does not itself own — implemented by a BuildState
// (spec.md §4.4: "Resolver depends on PathSet and a callback interface into
// BuildState").
type Checker interface {
	// IsProcessingRequired reports whether absPath needs reprocessing.
	IsProcessingRequired(absPath string) bool
	// DeletedInputPaths returns the relative path of every previously
	// tracked input under baseDir absent from selected.
	DeletedInputPaths(baseDir string, selected map[string]struct{}) []string
}

// Path is one classified entry returned by Resolve: either a dirty
// (needs-processing) selected entry, or a deletion record.
type Path struct {
	Relative string
	Deleted  bool
}

// Resolve walks ps.BaseDir on fs and returns the dirty paths: selected
// entries requiring processing, plus deletion records for inputs that
// vanished since the last build (spec.md §4.4).
func Resolve(fs afero.Fs, ps pathset.PathSet, checker Checker) ([]Path, error) {
	var dirty []Path
	selected := make(map[string]struct{})

	entries, err := readDirNames(fs, ps.BaseDir)
	if err != nil {
		return nil, err
	}
	if entries != nil {
		if ps.IncludeDirectories && ps.IsSelected("") {
			if checker.IsProcessingRequired(ps.BaseDir) {
				dirty = append(dirty, Path{Relative: ""})
			}
			selected[ps.BaseDir] = struct{}{}
		}
		if err := scan(fs, ps, checker, ps.BaseDir, "", entries, selected, &dirty); err != nil {
			return nil, err
		}
	}

	for _, rel := range checker.DeletedInputPaths(ps.BaseDir, selected) {
		dirty = append(dirty, Path{Relative: rel, Deleted: true})
	}

	return dirty, nil
}

func scan(fs afero.Fs, ps pathset.PathSet, checker Checker, dir, prefix string, names []string, selected map[string]struct{}, dirty *[]Path) error {
	for _, name := range names {
		rel := prefix + name
		abs := path.Join(dir, name)

		children, isDir, err := listIfDir(fs, abs)
		if err != nil {
			return err
		}

		if !isDir {
			if ps.IncludeFiles && ps.IsSelected(rel) {
				selected[abs] = struct{}{}
				if checker.IsProcessingRequired(abs) {
					*dirty = append(*dirty, Path{Relative: rel})
				}
			}
			continue
		}

		if ps.IncludeDirectories && ps.IsSelected(rel) {
			selected[abs] = struct{}{}
			if checker.IsProcessingRequired(abs) {
				*dirty = append(*dirty, Path{Relative: rel})
			}
		}
		if ps.IsAncestorOfPotentiallySelected(rel) {
			if err := scan(fs, ps, checker, abs, rel+"/", children, selected, dirty); err != nil {
				return err
			}
		}
	}
	return nil
}

func readDirNames(fs afero.Fs, dir string) ([]string, error) {
	f, err := fs.Open(dir)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	infos, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

func listIfDir(fs afero.Fs, abs string) (children []string, isDir bool, err error) {
	info, err := fs.Stat(abs)
	if err != nil {
		return nil, false, err
	}
	if !info.IsDir() {
		return nil, false, nil
	}
	names, err := readDirNames(fs, abs)
	if err != nil {
		return nil, true, err
	}
	return names, true, nil
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}
