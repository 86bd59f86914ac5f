package crypto

import (
	"crypto/sha256"
	"io"

	"github.com/dmarkin/bundler-wallet/internal/model"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// KDFMethod selects the password-to-key derivation algorithm.
type KDFMethod string

const (
	KDFArgon2id KDFMethod = "argon2id"
	KDFArgon2i  KDFMethod = "argon2i"
	KDFArgon2d  KDFMethod = "argon2d" // documented but not supported
	KDFPBKDF2   KDFMethod = "pbkdf2"
	KDFScrypt   KDFMethod = "scrypt"
	KDFHKDF     KDFMethod = "hkdf"
)

// SaltLen is the fixed salt length of the at-rest secret format. It is
// known at decode time, so salt||nonce||ciphertext needs no framing.
const SaltLen = 32

// KDFParams tunes the derivation algorithms.
//
// Security is prioritized over performance: scrypt N=2^18 (~256MB RAM,
// 0.5-2s) keeps brute force extremely expensive while still working on
// mobile-class memory limits. Argon2 parameters follow the RFC 9106
// low-memory profile.
type KDFParams struct {
	Argon2Time    uint32
	Argon2Memory  uint32 // KiB
	Argon2Threads uint8
	PBKDF2Iters   int
	ScryptN       int
	ScryptR       int
	ScryptP       int
	KeyLen        int
}

// DefaultKDFParams returns the production derivation parameters.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Argon2Time:    2,
		Argon2Memory:  19456, // 19.2 MB
		Argon2Threads: 1,
		PBKDF2Iters:   100_000,
		ScryptN:       1 << 18,
		ScryptR:       8,
		ScryptP:       1,
		KeyLen:        32,
	}
}

// EncryptedSecret is the opaque at-rest representation of a private key.
// The plaintext never exists outside a scoped vault access.
type EncryptedSecret struct {
	Salt []byte    // KDF salt, SaltLen bytes
	Blob []byte    // CipherBox output: nonce||ciphertext
	KDF  KDFMethod // method used to derive the wrapping key
}

// KeyHandle identifies a signer: its public address plus the encrypted
// secret. Handles are supplied per operation and never retained.
type KeyHandle struct {
	PublicKey string
	Secret    EncryptedSecret
}

// Vault derives wrapping keys from passwords and grants scoped, zeroizing
// access to decrypted secrets. One Vault is constructed at process start
// and shared by reference; there is no package-level instance.
type Vault struct {
	params KDFParams
}

// NewVault creates a Vault with the given derivation parameters.
func NewVault(params KDFParams) *Vault {
	if params.KeyLen == 0 {
		params = DefaultKDFParams()
	}
	return &Vault{params: params}
}

// DeriveKey derives a key of the configured length from password and salt.
// Identical inputs always yield byte-identical output. Argon2d is
// documented but deliberately unsupported: it fails loudly rather than
// silently falling back to another variant.
func (v *Vault) DeriveKey(password, salt []byte, method KDFMethod) ([]byte, error) {
	p := v.params
	switch method {
	case KDFArgon2id:
		return argon2.IDKey(password, salt, p.Argon2Time, p.Argon2Memory, p.Argon2Threads, uint32(p.KeyLen)), nil
	case KDFArgon2i:
		return argon2.Key(password, salt, p.Argon2Time, p.Argon2Memory, p.Argon2Threads, uint32(p.KeyLen)), nil
	case KDFArgon2d:
		return nil, &model.KeyDerivationError{Method: string(method), Message: "not supported"}
	case KDFPBKDF2:
		return pbkdf2.Key(password, salt, p.PBKDF2Iters, p.KeyLen, sha256.New), nil
	case KDFScrypt:
		key, err := scrypt.Key(password, salt, p.ScryptN, p.ScryptR, p.ScryptP, p.KeyLen)
		if err != nil {
			return nil, &model.KeyDerivationError{Method: string(method), Message: err.Error()}
		}
		return key, nil
	case KDFHKDF:
		key := make([]byte, p.KeyLen)
		if _, err := io.ReadFull(hkdf.New(sha256.New, password, salt, nil), key); err != nil {
			return nil, &model.KeyDerivationError{Method: string(method), Message: err.Error()}
		}
		return key, nil
	default:
		return nil, &model.KeyDerivationError{Method: string(method), Message: "unknown method"}
	}
}

// Seal encrypts plaintext under a key derived from password with a fresh
// random salt and returns the at-rest secret.
func (v *Vault) Seal(password, plaintext []byte, method KDFMethod) (*EncryptedSecret, error) {
	salt, err := RandomBytes(SaltLen)
	if err != nil {
		return nil, err
	}

	key, err := v.DeriveKey(password, salt, method)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	blob, err := Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}

	return &EncryptedSecret{Salt: salt, Blob: blob, KDF: method}, nil
}

// WithSecret decrypts the handle's secret and passes a borrowed view of the
// plaintext to fn. The backing buffer is overwritten with zeros on every
// exit path, including when fn returns an error or panics. No API returns
// owned plaintext key bytes to a long-lived caller.
func (v *Vault) WithSecret(secret *EncryptedSecret, password []byte, fn func(plaintext []byte) error) error {
	key, err := v.DeriveKey(password, secret.Salt, secret.KDF)
	if err != nil {
		return err
	}
	defer clear(key)

	plaintext, err := Decrypt(key, secret.Blob)
	if err != nil {
		return err
	}
	defer clear(plaintext)

	return fn(plaintext)
}

// Encode serializes the secret to the at-rest wire form
// salt||nonce||ciphertext. The KDF method travels out of band (wallet
// file metadata).
func (s *EncryptedSecret) Encode() []byte {
	out := make([]byte, 0, len(s.Salt)+len(s.Blob))
	out = append(out, s.Salt...)
	out = append(out, s.Blob...)
	return out
}

// DecodeSecret parses the salt||nonce||ciphertext wire form.
func DecodeSecret(raw []byte, method KDFMethod) (*EncryptedSecret, error) {
	if len(raw) < SaltLen+NonceLen {
		return nil, &model.CryptoError{Message: "secret blob too short"}
	}
	return &EncryptedSecret{
		Salt: raw[:SaltLen],
		Blob: raw[SaltLen:],
		KDF:  method,
	}, nil
}
