package buildstate

import (
	"testing"

	"github.com/spf13/afero"

	"incrementum/internal/diagnostics"
)

func TestIsConfigurationChanged(t *testing.T) {
	b := New(afero.NewMemMapFs(), "/state.ser")

	if !b.IsConfigurationChanged([]byte("v1")) {
		t.Error("a BuildState with no stored configuration must report changed")
	}

	b.SetConfiguration([]byte("v1"))
	if b.IsConfigurationChanged([]byte("v1")) {
		t.Error("identical configuration must report unchanged")
	}
	if !b.IsConfigurationChanged([]byte("v2")) {
		t.Error("different configuration must report changed")
	}
}

func TestSetValue_FullBuildDropsPriorValuesOnce(t *testing.T) {
	b := New(afero.NewMemMapFs(), "/state.ser")
	b.SetValue("stale", []byte("from a previous build"), false)

	b.SetValue("k1", []byte("v1"), true)
	b.SetValue("k2", []byte("v2"), true)

	if _, ok := b.GetValue("stale", false); ok {
		t.Error("a full build must discard values written before it, not merge into them")
	}
	if v, ok := b.GetValue("k1", false); !ok || string(v) != "v1" {
		t.Errorf("GetValue(k1) = (%q, %v), want (\"v1\", true) — a later write in the same full build must not clear an earlier one", v, ok)
	}
}

func TestGetValue_HiddenDuringFullBuild(t *testing.T) {
	b := New(afero.NewMemMapFs(), "/state.ser")
	b.SetValue("k", []byte("v"), false)

	if _, ok := b.GetValue("k", true); ok {
		t.Error("GetValue must report absent during a full build even if a value was written")
	}
	if v, ok := b.GetValue("k", false); !ok || string(v) != "v" {
		t.Errorf("GetValue(false) = (%q, %v), want (\"v\", true)", v, ok)
	}
}

func TestIsProcessingRequired_NewInputAlwaysDirty(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.go", []byte("x"), 0o644)
	b := New(fs, "/state.ser")

	if !b.IsProcessingRequired("/in/a.go", false) {
		t.Error("an input with no stored fingerprint must require processing")
	}
}

func TestIsProcessingRequired_UnchangedInputIsClean(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.go", []byte("x"), 0o644)
	b := New(fs, "/state.ser")
	b.SetOutputs("/in/a.go", nil)

	if b.IsProcessingRequired("/in/a.go", false) {
		t.Error("an input whose fingerprint has not changed must not require processing")
	}
}

func TestIsProcessingRequired_ChangedContentIsDirty(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.go", []byte("x"), 0o644)
	b := New(fs, "/state.ser")
	b.SetOutputs("/in/a.go", nil)

	afero.WriteFile(fs, "/in/a.go", []byte("xy"), 0o644)
	if !b.IsProcessingRequired("/in/a.go", false) {
		t.Error("a size change must require reprocessing")
	}
}

func TestIsProcessingRequired_FullBuildAlwaysDirty(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.go", []byte("x"), 0o644)
	b := New(fs, "/state.ser")
	b.SetOutputs("/in/a.go", nil)

	if !b.IsProcessingRequired("/in/a.go", true) {
		t.Error("a full build must force reprocessing regardless of stored state")
	}
}

func TestIsProcessingRequired_DirtyReferencedInputPropagates(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.go", []byte("a"), 0o644)
	afero.WriteFile(fs, "/in/ref.go", []byte("r"), 0o644)

	b := New(fs, "/state.ser")
	b.SetOutputs("/in/ref.go", nil)
	b.SetOutputs("/in/a.go", nil)
	b.SetReferencedInputs("/in/a.go", []string{"/in/ref.go"})

	afero.WriteFile(fs, "/in/ref.go", []byte("changed"), 0o644)

	if !b.IsProcessingRequired("/in/a.go", false) {
		t.Error("a change in a tracked referenced input must dirty the dependent input")
	}
}

func TestSetOutputs_ReturnsObsoleteOutputs(t *testing.T) {
	b := New(afero.NewMemMapFs(), "/state.ser")
	b.SetOutputs("/in/a.go", []string{"/out/a.txt", "/out/b.txt"})

	obsolete := b.SetOutputs("/in/a.go", []string{"/out/a.txt"})
	if len(obsolete) != 1 || obsolete[0] != "/out/b.txt" {
		t.Errorf("SetOutputs() obsolete = %v, want [/out/b.txt]", obsolete)
	}
}

func TestRemoveInput_OrphansOutputsNotOwnedElsewhere(t *testing.T) {
	b := New(afero.NewMemMapFs(), "/state.ser")
	b.SetOutputs("/in/a.go", []string{"/out/shared.txt", "/out/only-a.txt"})
	b.SetOutputs("/in/b.go", []string{"/out/shared.txt"})

	orphaned := b.RemoveInput("/in/a.go")
	if len(orphaned) != 1 || orphaned[0] != "/out/only-a.txt" {
		t.Errorf("RemoveInput() orphaned = %v, want [/out/only-a.txt]", orphaned)
	}
}

func TestCleanupReferencedInputs_PrunesUnreferenced(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/ref.go", []byte("r"), 0o644)
	b := New(fs, "/state.ser")
	b.SetOutputs("/in/a.go", nil)
	b.SetReferencedInputs("/in/a.go", []string{"/in/ref.go"})

	b.SetReferencedInputs("/in/a.go", nil)
	b.CleanupReferencedInputs()

	if len(b.Inputs["/in/a.go"].ReferencedFingerprints) != 0 {
		t.Error("stale referenced-input fingerprints were not pruned")
	}
}

// TestMergeMessages_OverwritesWithoutEchoingBack covers the case an input
// is present in the very call that overwrites it: its prior messages must
// not come back in the returned snapshot, since they were already routed
// live this build and replaying them again would duplicate diagnostics.
func TestMergeMessages_OverwritesWithoutEchoingBack(t *testing.T) {
	b := New(afero.NewMemMapFs(), "/state.ser")
	old := []diagnostics.Message{{Text: "first"}}
	b.MergeMessages(map[string][]diagnostics.Message{"/in/a.go": old})

	replaced := b.MergeMessages(map[string][]diagnostics.Message{"/in/a.go": {{Text: "second"}}})
	if len(replaced["/in/a.go"]) != 0 {
		t.Errorf("MergeMessages() previous for an overwritten input = %v, want none", replaced["/in/a.go"])
	}
	if b.Inputs["/in/a.go"].Messages[0].Text != "second" {
		t.Error("MergeMessages did not overwrite the stored messages")
	}
}

// TestMergeMessages_SnapshotsUntouchedInputs covers the other side: an
// input absent from the current call's newMessages must still have its
// previously stored messages returned, since commit protocol step 9 relies
// on this snapshot to replay diagnostics for inputs no one touched this
// build.
func TestMergeMessages_SnapshotsUntouchedInputs(t *testing.T) {
	b := New(afero.NewMemMapFs(), "/state.ser")
	old := []diagnostics.Message{{Text: "first"}}
	b.MergeMessages(map[string][]diagnostics.Message{"/in/untouched.go": old})

	replaced := b.MergeMessages(map[string][]diagnostics.Message{"/in/a.go": {{Text: "second"}}})
	if len(replaced["/in/untouched.go"]) != 1 || replaced["/in/untouched.go"][0].Text != "first" {
		t.Errorf("MergeMessages() previous for an untouched input = %v, want [{first}]", replaced["/in/untouched.go"])
	}
}

func TestGetDeletedInputPaths(t *testing.T) {
	b := New(afero.NewMemMapFs(), "/state.ser")
	b.SetOutputs("/in/a.go", nil)
	b.SetOutputs("/in/sub/b.go", nil)

	selected := map[string]struct{}{"/in/a.go": {}}
	deleted := b.GetDeletedInputPaths("/in", selected)

	if len(deleted) != 1 || deleted[0] != "sub/b.go" {
		t.Errorf("GetDeletedInputPaths() = %v, want [sub/b.go]", deleted)
	}
}
