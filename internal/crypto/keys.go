package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"waxwing/internal/domain"
)

// GenerateKeyPair returns a fresh Curve25519 identity key pair.
// The secret key is clamped per RFC 7748.
func GenerateKeyPair() (priv domain.SecretKey, pub domain.PublicKey, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return
	}
	clamp(&priv)
	pub, err = PublicFromSecret(priv)
	return
}

// PublicFromSecret recomputes the public half of a key pair.
func PublicFromSecret(priv domain.SecretKey) (domain.PublicKey, error) {
	var pub domain.PublicKey
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], pb)
	return pub, nil
}

func clamp(k *domain.SecretKey) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
