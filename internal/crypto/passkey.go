package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// Passkey is a password-derived symmetric key plus the salt and cost
// parameters it was derived with. Deriving is expensive; a Passkey is meant
// to be held for the lifetime of a profile and reused across encrypt and
// decrypt calls. The raw key bytes live in a sealed memguard enclave and
// are only materialized for the duration of a single operation.
type Passkey struct {
	hdr header // salt and cost parameters; nonce unused
	key *memguard.Enclave
}

// NewKey derives a Passkey from password under a fresh random salt and the
// default cost parameters.
func NewKey(password string) (*Passkey, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	var h header
	if _, err := rand.Read(h.salt[:]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	h.n, h.r, h.p = scryptParamsDefault()
	return derive(password, h)
}

// KeyFromCiphertext derives a Passkey compatible with an existing encrypted
// blob, reusing the salt and cost parameters embedded in its header.
func KeyFromCiphertext(password string, ciphertext []byte) (*Passkey, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	h, _, err := parseHeader(ciphertext)
	if err != nil {
		return nil, err
	}
	return derive(password, h)
}

func derive(password string, h header) (*Passkey, error) {
	raw, err := scrypt.Key([]byte(password), h.salt[:], int(h.n), int(h.r), int(h.p),
		chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	// NewBufferFromBytes wipes raw.
	return &Passkey{hdr: h, key: memguard.NewBufferFromBytes(raw).Seal()}, nil
}

// Encrypt seals plain under the key. The output carries the full header, so
// it can be decrypted later by a key derived via KeyFromCiphertext with the
// same password.
func (k *Passkey) Encrypt(plain []byte) ([]byte, error) {
	h := k.hdr
	if _, err := rand.Read(h.nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	aead, buf, err := k.open()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	hdr := encodeHeader(h)
	ad := hdr[:MagicSize+SaltSize+paramSize]
	return aead.Seal(hdr, h.nonce[:], plain, ad), nil
}

// Decrypt opens an encrypted blob. It fails with ErrNotEncrypted for data
// without the magic header and ErrDecryptionFailed when authentication
// fails. Callers must treat any error as total failure; there is no partial
// plaintext.
func (k *Passkey) Decrypt(ciphertext []byte) ([]byte, error) {
	h, ct, err := parseHeader(ciphertext)
	if err != nil {
		return nil, err
	}
	aead, buf, err := k.open()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	ad := ciphertext[:MagicSize+SaltSize+paramSize]
	plain, err := aead.Open(nil, h.nonce[:], ct, ad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

// open materializes the key and builds the AEAD. The caller destroys buf.
func (k *Passkey) open() (aead cipher.AEAD, buf *memguard.LockedBuffer, err error) {
	buf, err = k.key.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("unseal key: %w", err)
	}
	aead, err = chacha20poly1305.NewX(buf.Bytes())
	if err != nil {
		buf.Destroy()
		return nil, nil, err
	}
	return aead, buf, nil
}
