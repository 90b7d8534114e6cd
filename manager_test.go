package incrementum

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func TestNewContext_RejectsEmptyArguments(t *testing.T) {
	mgr := newTestManager(afero.NewMemMapFs())

	tests := []struct {
		name                       string
		outputDir, stateDir, id string
	}{
		{"empty output dir", "", "/state", "demo"},
		{"empty state dir", "/out", "", "demo"},
		{"empty builder id", "/out", "/state", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.NewContext(tt.outputDir, tt.stateDir, tt.id)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("NewContext(%q, %q, %q) = %v, want ErrInvalidArgument", tt.outputDir, tt.stateDir, tt.id, err)
			}
		})
	}
}

func TestNewContext_CacheEntryPurgedOnClose(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := newTestManager(fs)

	a, err := mgr.NewContext("/out", "/state", "demo")
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	mgr.mu.Lock()
	entry := mgr.cache[mgr.stateFilePath("/state", "/out", "demo")]
	holders := entry.holders
	mgr.mu.Unlock()
	if holders != 1 {
		t.Errorf("holders after one NewContext = %d, want 1", holders)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mgr.mu.Lock()
	_, stillCached := mgr.cache[mgr.stateFilePath("/state", "/out", "demo")]
	mgr.mu.Unlock()
	if stillCached {
		t.Error("cache entry must be purged once its last holder releases it")
	}
}

func TestContextFor_FindsMostSpecificLiveContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := newTestManager(fs)

	outer, _ := mgr.NewContext("/out", "/state", "outer")
	defer outer.Close()
	inner, _ := mgr.NewContext("/out/nested", "/state", "inner")
	defer inner.Close()

	found, ok := mgr.ContextFor("/out/nested/file.txt")
	if !ok || found != inner {
		t.Error("ContextFor did not select the most specific enclosing context")
	}

	found, ok = mgr.ContextFor("/out/file.txt")
	if !ok || found != outer {
		t.Error("ContextFor did not fall back to the outer context")
	}

	_, ok = mgr.ContextFor("/elsewhere/file.txt")
	if ok {
		t.Error("ContextFor must report false for a path with no owning context")
	}
}

func TestContextFor_DistinctBuilderIDsShareOutputDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := newTestManager(fs)

	a, err := mgr.NewContext("/out", "/state", "builder-a")
	if err != nil {
		t.Fatalf("NewContext(builder-a): %v", err)
	}
	b, err := mgr.NewContext("/out", "/state", "builder-b")
	if err != nil {
		t.Fatalf("NewContext(builder-b): %v", err)
	}

	if found, ok := mgr.ContextFor("/out/file.txt"); !ok || (found != a && found != b) {
		t.Fatalf("ContextFor found %v, want either live context on /out", found)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close(a): %v", err)
	}

	// Closing a must not deregister b, even though they share an output
	// directory: the registry is keyed per builder id/state file, not per
	// output directory.
	found, ok := mgr.ContextFor("/out/file.txt")
	if !ok || found != b {
		t.Fatalf("ContextFor after closing a = (%v, %v), want b still live", found, ok)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close(b): %v", err)
	}
	if _, ok := mgr.ContextFor("/out/file.txt"); ok {
		t.Error("ContextFor must report false once both contexts are closed")
	}
}

func TestResolveOutputs_IgnoresDirtinessAndDeletions(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/out/a.txt", []byte("x"), 0o644)
	afero.WriteFile(fs, "/out/b.txt", []byte("y"), 0o644)
	mgr := newTestManager(fs)

	matches, err := mgr.ResolveOutputs(NewPathSet("/out", []string{"*.txt"}, nil))
	if err != nil {
		t.Fatalf("ResolveOutputs: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("ResolveOutputs() = %v, want 2 matches", matches)
	}
}
