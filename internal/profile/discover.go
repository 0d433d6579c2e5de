package profile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"waxwing/internal/crypto"
	"waxwing/internal/settings"
	"waxwing/internal/store"
)

// Exists reports whether a save file exists for name.
func Exists(paths store.Paths, name string) bool {
	_, err := os.Stat(paths.Save(name))
	return err == nil
}

// IsEncrypted probes the save file on disk for the encryption magic. It
// does not need the profile to be loaded.
func IsEncrypted(paths store.Paths, name string) (bool, error) {
	f, err := os.Open(paths.Save(name))
	if err != nil {
		return false, err
	}
	defer f.Close()

	hdr := make([]byte, crypto.MagicSize)
	n, err := io.ReadFull(f, hdr)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return crypto.IsEncrypted(hdr[:n]), nil
}

// List scans the profile directory for save files and returns the profile
// names, sorted. A save file without a settings file gets a default one
// created, so imported profiles become fully usable.
func List(paths store.Paths, log zerolog.Logger) ([]string, error) {
	saves, err := filepath.Glob(filepath.Join(paths.Dir(), "*.tox"))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(saves))
	for _, save := range saves {
		name := strings.TrimSuffix(filepath.Base(save), ".tox")
		if _, err := os.Stat(paths.Settings(name)); errors.Is(err, os.ErrNotExist) {
			if cerr := settings.CreatePersonal(paths, name); cerr != nil {
				log.Warn().Err(cerr).Str("profile", name).Msg("could not create settings for imported profile")
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
