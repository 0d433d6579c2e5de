package crypto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// On-disk layout of an encrypted blob:
//
//	[0:8)    magic
//	[8:24)   scrypt salt
//	[24:28)  scrypt N, big endian
//	[28]     scrypt r
//	[29]     scrypt p
//	[30:54)  XChaCha20-Poly1305 nonce
//	[54:]    ciphertext with trailing auth tag
//
// The magic, salt and cost parameters are bound as associated data, so a
// blob whose header was tampered with fails authentication.
const (
	MagicSize = 8
	SaltSize  = 16
	paramSize = 6

	headerSize = MagicSize + SaltSize + paramSize + chacha20poly1305.NonceSizeX

	// EncryptionExtra is the fixed overhead an encrypted blob carries over
	// its plaintext.
	EncryptionExtra = headerSize + chacha20poly1305.Overhead
)

var magic = []byte("waxEsave")

var (
	// ErrNotEncrypted is returned when ciphertext input lacks the magic
	// header or is too short to contain one.
	ErrNotEncrypted = errors.New("data is not an encrypted blob")

	// ErrDecryptionFailed is returned when authentication fails: wrong
	// password, corrupted data, or a tampered header.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrEmptyPassword is returned when key derivation is attempted with
	// an empty password.
	ErrEmptyPassword = errors.New("empty password")
)

// scryptParamsDefault returns the cost parameters for newly derived keys.
func scryptParamsDefault() (N uint32, r, p uint8) { return 1 << 15, 8, 1 }

type header struct {
	salt  [SaltSize]byte
	n     uint32
	r, p  uint8
	nonce [chacha20poly1305.NonceSizeX]byte
}

// IsEncrypted reports whether data begins with the encrypted-blob magic.
func IsEncrypted(data []byte) bool {
	return len(data) >= MagicSize && bytes.HasPrefix(data, magic)
}

// encodeHeader serializes h. The associated-data region is the header up to
// but excluding the nonce.
func encodeHeader(h header) []byte {
	out := make([]byte, headerSize)
	copy(out, magic)
	copy(out[MagicSize:], h.salt[:])
	binary.BigEndian.PutUint32(out[MagicSize+SaltSize:], h.n)
	out[MagicSize+SaltSize+4] = h.r
	out[MagicSize+SaltSize+5] = h.p
	copy(out[MagicSize+SaltSize+paramSize:], h.nonce[:])
	return out
}

// parseHeader validates the magic and splits data into header and ciphertext.
func parseHeader(data []byte) (header, []byte, error) {
	var h header
	if !IsEncrypted(data) {
		return h, nil, ErrNotEncrypted
	}
	if len(data) < EncryptionExtra {
		return h, nil, fmt.Errorf("%w: %d bytes is too short", ErrNotEncrypted, len(data))
	}
	copy(h.salt[:], data[MagicSize:])
	h.n = binary.BigEndian.Uint32(data[MagicSize+SaltSize:])
	h.r = data[MagicSize+SaltSize+4]
	h.p = data[MagicSize+SaltSize+5]
	copy(h.nonce[:], data[MagicSize+SaltSize+paramSize:])
	return h, data[headerSize:], nil
}
