package crypto

import (
	"bytes"
	"testing"

	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyLen)
	plaintext := []byte("hello world")

	blob, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	require.Greater(t, len(blob), NonceLen)

	got, err := Decrypt(key, blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncryptRejectsBadKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		_, err := Encrypt(make([]byte, n), []byte("data"))
		var cryptoErr *model.CryptoError
		require.ErrorAs(t, err, &cryptoErr, "key length %d", n)
	}
}

func TestDecryptRejectsShortBlob(t *testing.T) {
	key := make([]byte, KeyLen)
	_, err := Decrypt(key, make([]byte, NonceLen-1))
	var cryptoErr *model.CryptoError
	require.ErrorAs(t, err, &cryptoErr)
}

func TestDecryptDetectsTampering(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyLen)
	blob, err := Encrypt(key, []byte("hello world"))
	require.NoError(t, err)

	// Flipping any single byte must fail authentication
	for i := range blob {
		corrupted := append([]byte(nil), blob...)
		corrupted[i] ^= 0x01

		_, err := Decrypt(key, corrupted)
		var cryptoErr *model.CryptoError
		require.ErrorAs(t, err, &cryptoErr, "byte %d", i)
	}
}

func TestDecryptWrongKeyIndistinguishable(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyLen)
	blob, err := Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	wrongKey := bytes.Repeat([]byte{0x43}, KeyLen)
	_, wrongKeyErr := Decrypt(wrongKey, blob)
	require.Error(t, wrongKeyErr)

	tampered := append([]byte(nil), blob...)
	tampered[len(tampered)-1] ^= 0x01
	_, tamperErr := Decrypt(key, tampered)
	require.Error(t, tamperErr)

	// Wrong key and tampered data surface the same error text
	assert.Equal(t, wrongKeyErr.Error(), tamperErr.Error())
}

func TestEncryptFreshNoncePerCall(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyLen)
	a, err := Encrypt(key, []byte("same payload"))
	require.NoError(t, err)
	b, err := Encrypt(key, []byte("same payload"))
	require.NoError(t, err)

	assert.NotEqual(t, a[:NonceLen], b[:NonceLen])
	assert.NotEqual(t, a, b)
}
