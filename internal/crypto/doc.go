// Package crypto exposes the primitives behind profile encryption.
//
// Contents
//
//   - Password-derived blob encryption with embedded KDF parameters
//     (Passkey, NewKey, KeyFromCiphertext, IsEncrypted)
//   - X25519 identity key generation and clamping (GenerateKeyPair,
//     PublicFromSecret)
//   - Content and keyed path hashes for the avatar cache (DataHash,
//     KeyedPathHash)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Key derivation is deliberately expensive; callers hold a Passkey across
// operations and only re-derive on password change. Key material is sealed
// in a memguard enclave between operations. Functions return fixed-size
// array types defined in internal/domain to avoid accidental reallocations.
package crypto
