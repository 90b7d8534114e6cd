package pathset

import "testing"

func TestIsSelected(t *testing.T) {
	tests := []struct {
		name     string
		includes []string
		excludes []string
		relPath  string
		want     bool
	}{
		{"empty includes matches all", nil, nil, "a/b.txt", true},
		{"include matches", []string{"*.txt"}, nil, "b.txt", true},
		{"include does not match", []string{"*.txt"}, nil, "b.go", false},
		{"exclude wins over include", []string{"**/*"}, []string{"*.tmp"}, "a.tmp", false},
		{"double-star descends", []string{"**/*.go"}, nil, "a/b/c.go", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := New("/base", tt.includes, tt.excludes)
			if got := ps.IsSelected(tt.relPath); got != tt.want {
				t.Errorf("IsSelected(%q) = %v, want %v", tt.relPath, got, tt.want)
			}
		})
	}
}

func TestIsAncestorOfPotentiallySelected(t *testing.T) {
	ps := New("/base", []string{"src/**/*.go"}, nil)

	if !ps.IsAncestorOfPotentiallySelected("src") {
		t.Error("expected src to be a potential ancestor of src/**/*.go")
	}
	if ps.IsAncestorOfPotentiallySelected("docs") {
		t.Error("docs cannot lead to anything matching src/**/*.go")
	}
}

func TestClone_IsDeep(t *testing.T) {
	original := New("/base", []string{"*.go"}, []string{"*_test.go"})
	clone := original.Clone()

	clone.Includes[0] = "*.txt"

	if original.Includes[0] != "*.go" {
		t.Error("mutating the clone's Includes slice mutated the original")
	}
}

func TestSatisfies(t *testing.T) {
	ps := New("/base", []string{"*.go"}, nil)

	if !ps.Satisfies("/base/main.go") {
		t.Error("expected /base/main.go to satisfy the set")
	}
	if ps.Satisfies("/other/main.go") {
		t.Error("path outside BaseDir must not satisfy the set")
	}
	if ps.Satisfies("/base/main.txt") {
		t.Error("path not matching includes must not satisfy the set")
	}
}

func TestRelativize(t *testing.T) {
	tests := []struct {
		base, target, wantRel string
		wantOK                bool
	}{
		{"/base", "/base/a/b.txt", "a/b.txt", true},
		{"/base", "/base", "", true},
		{"/base", "/other/b.txt", "", false},
		{"/base", "/basement/b.txt", "", false},
	}
	for _, tt := range tests {
		rel, ok := Relativize(tt.base, tt.target)
		if ok != tt.wantOK || rel != tt.wantRel {
			t.Errorf("Relativize(%q, %q) = (%q, %v), want (%q, %v)", tt.base, tt.target, rel, ok, tt.wantRel, tt.wantOK)
		}
	}
}

func TestHash_StableForEqualValues(t *testing.T) {
	a := New("/base", []string{"*.go"}, []string{"*_test.go"})
	b := New("/base", []string{"*.go"}, []string{"*_test.go"})

	ha, err := a.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	hb, err := b.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if ha != hb {
		t.Errorf("structurally equal PathSets hashed differently: %d != %d", ha, hb)
	}
}
