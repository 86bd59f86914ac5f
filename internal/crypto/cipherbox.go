package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/dmarkin/bundler-wallet/internal/model"
)

const (
	// KeyLen is the only key size CipherBox accepts (AES-256).
	KeyLen = 32
	// NonceLen is the GCM nonce length prepended to every ciphertext.
	NonceLen = 12
)

// Encrypt seals plaintext under a 32-byte key with AES-256-GCM and returns
// nonce||ciphertext. A fresh random nonce is drawn per call; a nonce is
// never reused under the same key.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	if len(key) != KeyLen {
		return nil, &model.CryptoError{Message: "key must be 32 bytes"}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &model.CryptoError{Message: "failed to create cipher: " + err.Error()}
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &model.CryptoError{Message: "failed to create GCM: " + err.Error()}
	}

	nonce := make([]byte, NonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, &model.CryptoError{Message: "failed to generate nonce: " + err.Error()}
	}

	// Seal appends ciphertext to the nonce so the output is nonce||ciphertext.
	return aesGCM.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce||ciphertext blob produced by Encrypt. Tag failure
// reports a single uniform error: callers cannot distinguish a wrong key
// from tampered data.
func Decrypt(key, blob []byte) ([]byte, error) {
	if len(key) != KeyLen {
		return nil, &model.CryptoError{Message: "key must be 32 bytes"}
	}
	if len(blob) < NonceLen {
		return nil, &model.CryptoError{Message: "encrypted data too short"}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &model.CryptoError{Message: "failed to create cipher: " + err.Error()}
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &model.CryptoError{Message: "failed to create GCM: " + err.Error()}
	}

	plaintext, err := aesGCM.Open(nil, blob[:NonceLen], blob[NonceLen:], nil)
	if err != nil {
		return nil, &model.CryptoError{Message: "decryption failed"}
	}
	return plaintext, nil
}

// RandomBytes returns length cryptographically random bytes.
func RandomBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, &model.CryptoError{Message: "failed to read random bytes: " + err.Error()}
	}
	return b, nil
}
