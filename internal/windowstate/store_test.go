package windowstate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "window-state.json"))

	st := store.Load()
	if st != Default() {
		t.Errorf("Load() = %+v, want defaults %+v", st, Default())
	}
}

func TestLoad_CorruptFileReturnsDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{{{{garbage"},
		{"wrong type", `"just a string"`},
		{"empty file", ""},
		{"zero dimensions", `{"width":0,"height":0}`},
		{"negative dimensions", `{"width":-5,"height":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "window-state.json")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			st := NewStore(path).Load()
			if st != Default() {
				t.Errorf("Load() = %+v, want defaults", st)
			}
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "window-state.json"))

	want := State{Width: 1440, Height: 900, X: 50, Y: 60, ZoomLevel: 1.5}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got := store.Load(); got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestSave_MaximizedKeepsLastNormalGeometry(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "window-state.json"))

	normal := State{Width: 1440, Height: 900, X: 10, Y: 20}
	if err := store.Save(normal); err != nil {
		t.Fatal(err)
	}

	// Maximizing must not record the transient full-screen geometry.
	if err := store.Save(State{Width: 2560, Height: 1600, IsMaximized: true}); err != nil {
		t.Fatal(err)
	}

	got := store.Load()
	if !got.IsMaximized {
		t.Error("IsMaximized not persisted")
	}
	if got.Width != normal.Width || got.Height != normal.Height {
		t.Errorf("geometry = %dx%d, want last normal %dx%d", got.Width, got.Height, normal.Width, normal.Height)
	}
	if got.X != normal.X || got.Y != normal.Y {
		t.Errorf("position = (%d,%d), want last normal (%d,%d)", got.X, got.Y, normal.X, normal.Y)
	}
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "window-state.json"))

	if err := store.Save(Default()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}
