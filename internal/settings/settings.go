// Package settings owns the ini-backed preference files: one global file
// for the installation and one file per profile. The profile lifecycle
// layer only triggers create/load/save/rename timing; everything else
// reads and writes through the typed accessors here.
package settings

import (
	"bytes"
	"errors"
	"os"
	"strconv"
	"sync"

	"gopkg.in/ini.v1"

	"waxwing/internal/store"
)

const generalSection = "General"

// Global is the installation-wide settings file.
type Global struct {
	paths store.Paths

	mu   sync.Mutex
	file *ini.File
}

// LoadGlobal reads the global settings, starting empty when the file does
// not exist yet.
func LoadGlobal(paths store.Paths) (*Global, error) {
	f, err := loadOrEmpty(paths.GlobalSettings())
	if err != nil {
		return nil, err
	}
	return &Global{paths: paths, file: f}, nil
}

// CurrentProfile returns the profile to open on startup, or "".
func (g *Global) CurrentProfile() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.file.Section(generalSection).Key("CurrentProfile").String()
}

// SetCurrentProfile records name as the startup profile and persists
// immediately.
func (g *Global) SetCurrentProfile(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.file.Section(generalSection).Key("CurrentProfile").SetValue(name)
	return writeIni(g.file, g.paths.GlobalSettings())
}

// Profile is one profile's settings file.
type Profile struct {
	name  string
	paths store.Paths

	mu   sync.Mutex
	file *ini.File
}

// CreatePersonal writes a default settings file for name unless one already
// exists.
func CreatePersonal(paths store.Paths, name string) error {
	path := paths.Settings(name)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	f := ini.Empty()
	applyDefaults(f)
	return writeIni(f, path)
}

// LoadPersonal reads a profile's settings, applying defaults for missing
// keys or a missing file.
func LoadPersonal(paths store.Paths, name string) (*Profile, error) {
	f, err := loadOrEmpty(paths.Settings(name))
	if err != nil {
		return nil, err
	}
	return &Profile{name: name, paths: paths, file: f}, nil
}

// EnableLogging reports whether chat history should be recorded.
func (p *Profile) EnableLogging() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Section(generalSection).Key("EnableLogging").MustBool(true)
}

// SetEnableLogging toggles chat history recording.
func (p *Profile) SetEnableLogging(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.file.Section(generalSection).Key("EnableLogging").SetValue(strconv.FormatBool(v))
}

// ShowIdenticons reports whether missing avatars render as identicons
// instead of a blank placeholder.
func (p *Profile) ShowIdenticons() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Section(generalSection).Key("ShowIdenticons").MustBool(true)
}

// SetShowIdenticons toggles identicon placeholders.
func (p *Profile) SetShowIdenticons(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.file.Section(generalSection).Key("ShowIdenticons").SetValue(strconv.FormatBool(v))
}

// Save persists the profile settings.
func (p *Profile) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return writeIni(p.file, p.paths.Settings(p.name))
}

// Rename moves the settings file to the new profile name. The old file may
// not exist yet; that is not an error.
func (p *Profile) Rename(newName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	oldPath := p.paths.Settings(p.name)
	newPath := p.paths.Settings(newName)
	if err := os.Rename(oldPath, newPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	p.name = newName
	return nil
}

func loadOrEmpty(path string) (*ini.File, error) {
	f, err := ini.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		f = ini.Empty()
		applyDefaults(f)
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func applyDefaults(f *ini.File) {
	sec := f.Section(generalSection)
	if !sec.HasKey("EnableLogging") {
		sec.Key("EnableLogging").SetValue("true")
	}
	if !sec.HasKey("ShowIdenticons") {
		sec.Key("ShowIdenticons").SetValue("true")
	}
}

// writeIni serializes through the atomic writer so settings survive a crash
// mid-save.
func writeIni(f *ini.File, path string) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return err
	}
	return store.WriteFileAtomic(path, buf.Bytes(), 0o600)
}
