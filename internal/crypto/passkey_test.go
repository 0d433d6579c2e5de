package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"waxwing/internal/crypto"
	"waxwing/internal/domain"
)

func newKey(t *testing.T, password string) *crypto.Passkey {
	t.Helper()
	k, err := crypto.NewKey(password)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return k
}

func TestPasskey_RoundTrip_OK(t *testing.T) {
	k := newKey(t, "secret123")
	plain := []byte("the quick brown fox")

	ct, err := k.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !crypto.IsEncrypted(ct) {
		t.Fatal("ciphertext is missing the magic header")
	}
	if len(ct) != len(plain)+crypto.EncryptionExtra {
		t.Fatalf("ciphertext length %d, want %d", len(ct), len(plain)+crypto.EncryptionExtra)
	}

	got, err := k.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestPasskey_KeyFromCiphertext_DecryptsLater(t *testing.T) {
	ct, err := newKey(t, "secret123").Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// A key re-derived from the blob header must open it.
	k2, err := crypto.KeyFromCiphertext("secret123", ct)
	if err != nil {
		t.Fatalf("KeyFromCiphertext: %v", err)
	}
	got, err := k2.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt with re-derived key: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q", got)
	}
}

func TestPasskey_WrongPassword_Fails(t *testing.T) {
	ct, err := newKey(t, "right horse").Encrypt([]byte("battery staple"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	wrong, err := crypto.KeyFromCiphertext("wrong horse", ct)
	if err != nil {
		t.Fatalf("KeyFromCiphertext: %v", err)
	}
	if _, err := wrong.Decrypt(ct); !errors.Is(err, crypto.ErrDecryptionFailed) {
		t.Fatalf("Decrypt with wrong password: got %v, want ErrDecryptionFailed", err)
	}
}

func TestPasskey_TamperedCiphertext_Fails(t *testing.T) {
	k := newKey(t, "secret123")
	ct, err := k.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	for name, mutate := range map[string]func([]byte){
		"flip ciphertext byte": func(b []byte) { b[len(b)-1] ^= 0x01 },
		"flip salt byte":       func(b []byte) { b[crypto.MagicSize] ^= 0x01 },
		"flip cost parameter":  func(b []byte) { b[crypto.MagicSize+crypto.SaltSize+3] ^= 0x01 },
	} {
		mutated := bytes.Clone(ct)
		mutate(mutated)
		if _, err := k.Decrypt(mutated); err == nil {
			t.Errorf("%s: Decrypt succeeded on tampered data", name)
		}
	}
}

func TestPasskey_DecryptPlaintext_Fails(t *testing.T) {
	k := newKey(t, "secret123")

	if _, err := k.Decrypt([]byte("just some plain bytes")); !errors.Is(err, crypto.ErrNotEncrypted) {
		t.Fatalf("Decrypt plain data: got %v, want ErrNotEncrypted", err)
	}
	if _, err := k.Decrypt(nil); !errors.Is(err, crypto.ErrNotEncrypted) {
		t.Fatalf("Decrypt nil: got %v, want ErrNotEncrypted", err)
	}
}

func TestNewKey_EmptyPassword_Fails(t *testing.T) {
	if _, err := crypto.NewKey(""); !errors.Is(err, crypto.ErrEmptyPassword) {
		t.Fatalf("NewKey(\"\"): got %v, want ErrEmptyPassword", err)
	}
	if _, err := crypto.KeyFromCiphertext("", []byte("waxEsave")); !errors.Is(err, crypto.ErrEmptyPassword) {
		t.Fatalf("KeyFromCiphertext(\"\"): got %v, want ErrEmptyPassword", err)
	}
}

func TestIsEncrypted(t *testing.T) {
	if crypto.IsEncrypted([]byte("{}")) {
		t.Error("IsEncrypted true for plain JSON")
	}
	if crypto.IsEncrypted(nil) {
		t.Error("IsEncrypted true for nil")
	}

	ct, err := newKey(t, "pw-pw-pw").Encrypt([]byte("x"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !crypto.IsEncrypted(ct) {
		t.Error("IsEncrypted false for encrypted blob")
	}
	// The probe only needs the magic region.
	if !crypto.IsEncrypted(ct[:crypto.MagicSize]) {
		t.Error("IsEncrypted false for header prefix")
	}
}

func TestKeyedPathHash_DependsOnKey(t *testing.T) {
	name := []byte("3A1B" + "0000")

	var k1, k2 domain.PublicKey
	k1[0], k2[0] = 1, 2

	h1, err := crypto.KeyedPathHash(name, k1)
	if err != nil {
		t.Fatalf("KeyedPathHash: %v", err)
	}
	h1again, err := crypto.KeyedPathHash(name, k1)
	if err != nil {
		t.Fatalf("KeyedPathHash: %v", err)
	}
	h2, err := crypto.KeyedPathHash(name, k2)
	if err != nil {
		t.Fatalf("KeyedPathHash: %v", err)
	}

	if !bytes.Equal(h1, h1again) {
		t.Error("KeyedPathHash is not deterministic")
	}
	if bytes.Equal(h1, h2) {
		t.Error("KeyedPathHash ignores the key")
	}
	if len(h1) != domain.PublicKeySize {
		t.Errorf("digest length %d, want %d", len(h1), domain.PublicKeySize)
	}
}

func TestGenerateKeyPair_PublicMatchesSecret(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	recomputed, err := crypto.PublicFromSecret(priv)
	if err != nil {
		t.Fatalf("PublicFromSecret: %v", err)
	}
	if recomputed != pub {
		t.Fatal("public key does not match secret key")
	}
	if pub.IsZero() {
		t.Fatal("generated zero public key")
	}
}

func TestDataHash_EmptyIsNotZero(t *testing.T) {
	h := crypto.DataHash(nil)
	if len(h) != 32 {
		t.Fatalf("hash length %d", len(h))
	}
	if bytes.Equal(h, make([]byte, 32)) {
		t.Fatal("hash of empty content must not be all zeroes")
	}
	if bytes.Equal(h, crypto.DataHash([]byte("x"))) {
		t.Fatal("distinct content produced equal hashes")
	}
}
