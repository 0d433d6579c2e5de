package store

import (
	"os"
	"path/filepath"
)

// globalSettingsFile is the installation-wide settings file name.
const globalSettingsFile = "waxwing.ini"

// Paths resolves every per-profile file location from one base directory.
// Layout, for profile <name>:
//
//	<dir>/<name>.tox    serialized core state, possibly encrypted
//	<dir>/<name>.ini    per-profile settings
//	<dir>/<name>.db     chat history database
//	<dir>/<name>.lock   instance lock token
//	<dir>/avatars/*.png cached avatars, shared across profiles
type Paths struct {
	dir string
}

// NewPaths returns Paths rooted at dir.
func NewPaths(dir string) Paths { return Paths{dir: dir} }

// Dir returns the base directory.
func (p Paths) Dir() string { return p.dir }

// Save returns the save-file path for a profile.
func (p Paths) Save(name string) string { return filepath.Join(p.dir, name+".tox") }

// Settings returns the per-profile settings path.
func (p Paths) Settings(name string) string { return filepath.Join(p.dir, name+".ini") }

// GlobalSettings returns the installation-wide settings path.
func (p Paths) GlobalSettings() string { return filepath.Join(p.dir, globalSettingsFile) }

// Database returns the history database path for a profile.
func (p Paths) Database(name string) string { return filepath.Join(p.dir, name+".db") }

// AvatarDir returns the avatar cache directory.
func (p Paths) AvatarDir() string { return filepath.Join(p.dir, "avatars") }

// Avatar returns the path of one cached avatar file.
func (p Paths) Avatar(file string) string { return filepath.Join(p.AvatarDir(), file) }

// EnsureDirs creates the base and avatar directories if missing.
func (p Paths) EnsureDirs() error {
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return err
	}
	return os.MkdirAll(p.AvatarDir(), 0o700)
}
