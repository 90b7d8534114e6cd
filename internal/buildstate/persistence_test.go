package buildstate

import (
	"testing"

	"github.com/spf13/afero"
)

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/in/a.go", []byte("x"), 0o644)

	b := New(fs, "/state/build.ser")
	b.SetConfiguration([]byte("digest-v1"))
	b.SetOutputs("/in/a.go", []string{"/out/a.txt"})
	b.SetValue("k", []byte("v"), false)

	if err := b.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(fs, "/state/build.ser")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.IsConfigurationChanged([]byte("digest-v1")) {
		t.Error("loaded configuration digest does not match what was saved")
	}
	if loaded.Inputs["/in/a.go"] == nil || len(loaded.Inputs["/in/a.go"].Outputs) != 1 {
		t.Errorf("loaded inputs = %+v, want /in/a.go with one output", loaded.Inputs)
	}
	if v, ok := loaded.GetValue("k", false); !ok || string(v) != "v" {
		t.Errorf("loaded user value = (%q, %v), want (\"v\", true)", v, ok)
	}
}

func TestLoad_MissingFileIsAnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Load(fs, "/state/missing.ser"); err == nil {
		t.Fatal("expected an error loading a missing state file")
	}
}

func TestLoad_CorruptFileIsAnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/state/build.ser", []byte("not json"), 0o644)

	if _, err := Load(fs, "/state/build.ser"); err == nil {
		t.Fatal("expected an error loading an undecodable state file")
	}
}

func TestIsStale_DetectsExternalModification(t *testing.T) {
	fs := afero.NewMemMapFs()
	b := New(fs, "/state/build.ser")
	if err := b.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(fs, "/state/build.ser")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.IsStale() {
		t.Error("a freshly loaded state must not report stale")
	}

	afero.WriteFile(fs, "/state/build.ser", []byte(`{"inputs":{},"extra":"padding"}`), 0o644)
	if !loaded.IsStale() {
		t.Error("a state file modified out from under a loaded instance must report stale")
	}
}

func TestDestroy_RemovesTheStateFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	b := New(fs, "/state/build.ser")
	b.Save()

	if err := Destroy(fs, "/state/build.ser"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := fs.Stat("/state/build.ser"); err == nil {
		t.Error("state file still exists after Destroy")
	}
}

func TestDestroy_MissingFileIsNotAnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := Destroy(fs, "/state/never-existed.ser"); err != nil {
		t.Errorf("Destroy on a missing file returned an error: %v", err)
	}
}
