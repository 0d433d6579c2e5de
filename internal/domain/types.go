package domain

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	// PublicKeySize is the length in bytes of a peer public key.
	PublicKeySize = 32
	// SecretKeySize is the length in bytes of an identity secret key.
	SecretKeySize = 32
	// NospamSize is the length in bytes of the anti-spam tag embedded in an address.
	NospamSize = 4
	// ChecksumSize is the length in bytes of the address checksum.
	ChecksumSize = 2
	// AddressSize is the length in bytes of a full contact address.
	AddressSize = PublicKeySize + NospamSize + ChecksumSize
)

var (
	// ErrInvalidPublicKey is returned when parsing a malformed public key string.
	ErrInvalidPublicKey = errors.New("invalid public key")
	// ErrInvalidAddress is returned when parsing a malformed or corrupted address.
	ErrInvalidAddress = errors.New("invalid address")
)

// PublicKey identifies a peer.
type PublicKey [PublicKeySize]byte

// Slice returns the key as a byte slice.
func (k PublicKey) Slice() []byte { return k[:] }

// Hex returns the canonical uppercase hex form used in file names and logs.
func (k PublicKey) Hex() string { return strings.ToUpper(hex.EncodeToString(k[:])) }

func (k PublicKey) String() string { return k.Hex() }

// IsZero reports whether the key is all zeroes.
func (k PublicKey) IsZero() bool { return k == PublicKey{} }

// ParsePublicKey decodes a hex public key in either case.
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != PublicKeySize {
		return k, ErrInvalidPublicKey
	}
	copy(k[:], b)
	return k, nil
}

// SecretKey is the private half of an identity key pair.
type SecretKey [SecretKeySize]byte

// Slice returns the key as a byte slice.
func (k SecretKey) Slice() []byte { return k[:] }

// Nospam is the rotating anti-spam tag appended to the public key in an address.
type Nospam [NospamSize]byte

// Address is the full shareable contact address: public key, nospam tag,
// then a two-byte checksum over both.
type Address [AddressSize]byte

// MakeAddress assembles an address from its parts and appends the checksum.
func MakeAddress(pk PublicKey, ns Nospam) Address {
	var a Address
	copy(a[:], pk[:])
	copy(a[PublicKeySize:], ns[:])
	sum := addressChecksum(a[:PublicKeySize+NospamSize])
	copy(a[PublicKeySize+NospamSize:], sum[:])
	return a
}

// PublicKey returns the public-key portion of the address.
func (a Address) PublicKey() PublicKey {
	var k PublicKey
	copy(k[:], a[:PublicKeySize])
	return k
}

// Hex returns the canonical uppercase hex form shared with contacts.
func (a Address) Hex() string { return strings.ToUpper(hex.EncodeToString(a[:])) }

func (a Address) String() string { return a.Hex() }

// ParseAddress decodes a hex address and verifies its checksum.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != AddressSize {
		return a, ErrInvalidAddress
	}
	sum := addressChecksum(b[:PublicKeySize+NospamSize])
	if !bytes.Equal(sum[:], b[PublicKeySize+NospamSize:]) {
		return a, ErrInvalidAddress
	}
	copy(a[:], b)
	return a, nil
}

// addressChecksum folds the payload into two bytes by XOR.
func addressChecksum(payload []byte) [ChecksumSize]byte {
	var sum [ChecksumSize]byte
	for i, b := range payload {
		sum[i%ChecksumSize] ^= b
	}
	return sum
}

// Friend is a roster entry as seen by the lifecycle layer.
type Friend struct {
	PublicKey PublicKey
	Alias     string
	Connected bool
}

// ProxyType selects how the core reaches the network.
type ProxyType int

const (
	ProxyNone ProxyType = iota
	ProxySOCKS5
	ProxyHTTP
)

// CoreOptions carries the transport configuration handed to a core factory.
type CoreOptions struct {
	UDPEnabled bool
	ProxyType  ProxyType
	ProxyHost  string
	ProxyPort  uint16
}
