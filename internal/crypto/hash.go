package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"waxwing/internal/domain"
)

// DataHash returns the content hash used to compare avatar transfers.
// The hash of empty content is the hash of the empty string, not zeroes.
func DataHash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// KeyedPathHash hashes name under key with BLAKE2b. Cache files for
// encrypted profiles are named by this digest so the directory listing does
// not reveal which contacts have cached data.
func KeyedPathHash(name []byte, key domain.PublicKey) ([]byte, error) {
	h, err := blake2b.New(domain.PublicKeySize, key.Slice())
	if err != nil {
		return nil, err
	}
	h.Write(name)
	return h.Sum(nil), nil
}

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}
