package store

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"waxwing/internal/crypto"
	"waxwing/internal/domain"
)

// AvatarCache stores per-contact avatar images under the profile's avatar
// directory, addressed by the owner's public key.
//
// For an unencrypted profile the file name is the owner key's hex form.
// For an encrypted profile it is a keyed hash of that hex string, keyed
// with the cache owner's own public key, so the directory listing does not
// reveal which contacts have cached data; file contents are encrypted with
// the profile key. Last write wins, per owner.
type AvatarCache struct {
	paths Paths
	self  domain.PublicKey
	log   zerolog.Logger

	mu  sync.Mutex
	key *crypto.Passkey // nil means plaintext storage
}

// NewAvatarCache returns a cache owned by self. A nil key selects the
// plaintext branch.
func NewAvatarCache(paths Paths, self domain.PublicKey, key *crypto.Passkey, log zerolog.Logger) *AvatarCache {
	return &AvatarCache{paths: paths, self: self, log: log, key: key}
}

// SetKey swaps the encryption key. Existing files stay under the old key;
// the caller re-saves them, see Profile.SetPassword.
func (c *AvatarCache) SetKey(key *crypto.Passkey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
}

// Path returns the cache file location for owner. forceUnencrypted selects
// the plaintext name even when the cache has a key, used as the fallback
// location for avatars cached before the profile was encrypted.
func (c *AvatarCache) Path(owner domain.PublicKey, forceUnencrypted bool) (string, error) {
	c.mu.Lock()
	key := c.key
	c.mu.Unlock()

	if key == nil || forceUnencrypted {
		return c.paths.Avatar(owner.Hex() + ".png"), nil
	}
	sum, err := crypto.KeyedPathHash([]byte(owner.Hex()), c.self)
	if err != nil {
		return "", err
	}
	return c.paths.Avatar(strings.ToUpper(hex.EncodeToString(sum)) + ".png"), nil
}

// Load returns the cached image for owner, nil when none is cached. An
// encrypted cache falls back to the plaintext location for files written
// before encryption was enabled.
func (c *AvatarCache) Load(owner domain.PublicKey) ([]byte, error) {
	c.mu.Lock()
	key := c.key
	c.mu.Unlock()

	path, err := c.Path(owner, false)
	if err != nil {
		return nil, err
	}
	sealed := key != nil
	if sealed {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			sealed = false
			if path, err = c.Path(owner, true); err != nil {
				return nil, err
			}
		}
	}

	pic, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sealed && len(pic) > 0 {
		if pic, err = key.Decrypt(pic); err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("could not decrypt cached avatar")
			return nil, err
		}
	}
	return pic, nil
}

// Save writes owner's avatar, encrypting when the cache has a key. An
// empty pic removes the cached file instead.
func (c *AvatarCache) Save(owner domain.PublicKey, pic []byte) error {
	c.mu.Lock()
	key := c.key
	c.mu.Unlock()

	path, err := c.Path(owner, false)
	if err != nil {
		return err
	}
	if len(pic) == 0 {
		return c.Delete(owner)
	}
	if key != nil {
		if pic, err = key.Encrypt(pic); err != nil {
			return err
		}
	}
	return WriteFileAtomic(path, pic, 0o600)
}

// Delete removes owner's cached file at both the encrypted and plaintext
// locations. Missing files are not an error.
func (c *AvatarCache) Delete(owner domain.PublicKey) error {
	for _, force := range []bool{false, true} {
		path, err := c.Path(owner, force)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Hash returns the content hash used for avatar-offer comparisons. A
// missing or unreadable avatar hashes as empty content, so any offered
// avatar compares as different.
func (c *AvatarCache) Hash(owner domain.PublicKey) []byte {
	pic, err := c.Load(owner)
	if err != nil {
		pic = nil
	}
	return crypto.DataHash(pic)
}
