package settings_test

import (
	"errors"
	"os"
	"testing"

	"waxwing/internal/settings"
	"waxwing/internal/store"
)

func newPaths(t *testing.T) store.Paths {
	t.Helper()
	p := store.NewPaths(t.TempDir())
	if err := p.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return p
}

func TestCreatePersonal_WritesDefaultsOnce(t *testing.T) {
	paths := newPaths(t)

	if err := settings.CreatePersonal(paths, "alice"); err != nil {
		t.Fatalf("CreatePersonal: %v", err)
	}
	if _, err := os.Stat(paths.Settings("alice")); err != nil {
		t.Fatalf("settings file missing: %v", err)
	}

	p, err := settings.LoadPersonal(paths, "alice")
	if err != nil {
		t.Fatalf("LoadPersonal: %v", err)
	}
	if !p.EnableLogging() || !p.ShowIdenticons() {
		t.Fatal("defaults not applied")
	}

	// A second create must not clobber user edits.
	p.SetEnableLogging(false)
	if err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := settings.CreatePersonal(paths, "alice"); err != nil {
		t.Fatalf("CreatePersonal again: %v", err)
	}
	p2, err := settings.LoadPersonal(paths, "alice")
	if err != nil {
		t.Fatalf("LoadPersonal: %v", err)
	}
	if p2.EnableLogging() {
		t.Fatal("CreatePersonal overwrote existing settings")
	}
}

func TestPersonal_SaveLoadRoundTrip(t *testing.T) {
	paths := newPaths(t)

	p, err := settings.LoadPersonal(paths, "bob")
	if err != nil {
		t.Fatalf("LoadPersonal: %v", err)
	}
	p.SetEnableLogging(false)
	p.SetShowIdenticons(false)
	if err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := settings.LoadPersonal(paths, "bob")
	if err != nil {
		t.Fatalf("LoadPersonal: %v", err)
	}
	if got.EnableLogging() || got.ShowIdenticons() {
		t.Fatal("settings did not round trip")
	}
}

func TestPersonal_Rename(t *testing.T) {
	paths := newPaths(t)

	if err := settings.CreatePersonal(paths, "old"); err != nil {
		t.Fatalf("CreatePersonal: %v", err)
	}
	p, err := settings.LoadPersonal(paths, "old")
	if err != nil {
		t.Fatalf("LoadPersonal: %v", err)
	}
	if err := p.Rename("new"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if _, err := os.Stat(paths.Settings("old")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("old settings still present: %v", err)
	}
	if _, err := os.Stat(paths.Settings("new")); err != nil {
		t.Fatalf("new settings missing: %v", err)
	}

	// Saves after the rename land at the new path.
	p.SetEnableLogging(false)
	if err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := settings.LoadPersonal(paths, "new")
	if err != nil {
		t.Fatalf("LoadPersonal: %v", err)
	}
	if got.EnableLogging() {
		t.Fatal("save went to the wrong file")
	}
}

func TestGlobal_CurrentProfile(t *testing.T) {
	paths := newPaths(t)

	g, err := settings.LoadGlobal(paths)
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if g.CurrentProfile() != "" {
		t.Fatalf("CurrentProfile=%q on fresh install", g.CurrentProfile())
	}
	if err := g.SetCurrentProfile("alice"); err != nil {
		t.Fatalf("SetCurrentProfile: %v", err)
	}

	got, err := settings.LoadGlobal(paths)
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if got.CurrentProfile() != "alice" {
		t.Fatalf("CurrentProfile=%q after reload", got.CurrentProfile())
	}
}
