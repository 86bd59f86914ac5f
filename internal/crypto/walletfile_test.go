package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWalletData() *model.WalletData {
	key := make([]byte, 64)
	for i := range key {
		key[i] = byte(i)
	}
	return &model.WalletData{PrivateKey: key, CreatedAt: "2026-08-30T12:00:00Z"}
}

func writeTestWallet(t *testing.T, vault *Vault, password []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallet.cwt")
	err := EncryptWalletFile(vault, path, "solana", "TestAddress111", "qr-png-base64", testWalletData(), password, KDFScrypt)
	require.NoError(t, err)
	return path
}

func TestWalletFileRoundTrip(t *testing.T) {
	vault := NewVault(testKDFParams())
	password := []byte("correct horse battery staple")
	path := writeTestWallet(t, vault, password)

	walletFile, handle, err := ReadWalletFile(path)
	require.NoError(t, err)
	assert.Equal(t, "solana", walletFile.Network)
	assert.Equal(t, "TestAddress111", walletFile.Address)
	assert.Equal(t, "TestAddress111", handle.PublicKey)
	assert.Equal(t, string(KDFScrypt), walletFile.KDF)

	called := false
	err = OpenSignerKey(vault, &handle.Secret, password, func(privateKey []byte) error {
		called = true
		assert.Equal(t, testWalletData().PrivateKey, privateKey)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestWalletFilePermissions(t *testing.T) {
	vault := NewVault(testKDFParams())
	path := writeTestWallet(t, vault, []byte("pw"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWalletFileBOM(t *testing.T) {
	vault := NewVault(testKDFParams())
	path := writeTestWallet(t, vault, []byte("pw"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3], "file starts with UTF-8 BOM")
}

func TestEncryptWalletFileRefusesOverwrite(t *testing.T) {
	vault := NewVault(testKDFParams())
	path := writeTestWallet(t, vault, []byte("pw"))

	err := EncryptWalletFile(vault, path, "solana", "Other", "", testWalletData(), []byte("pw"), KDFScrypt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty")
}

func TestEncryptWalletFileExtension(t *testing.T) {
	vault := NewVault(testKDFParams())
	path := filepath.Join(t.TempDir(), "wallet.txt")
	err := EncryptWalletFile(vault, path, "solana", "Addr", "", testWalletData(), []byte("pw"), KDFScrypt)
	require.Error(t, err)
}

func TestReadWalletAddress(t *testing.T) {
	vault := NewVault(testKDFParams())
	path := writeTestWallet(t, vault, []byte("pw"))

	address, err := ReadWalletAddress(path)
	require.NoError(t, err)
	assert.Equal(t, "TestAddress111", address)
}

func TestReadWalletFileMissing(t *testing.T) {
	_, _, err := ReadWalletFile(filepath.Join(t.TempDir(), "absent.cwt"))
	require.Error(t, err)
}

func TestWithWalletKeyWrongPassword(t *testing.T) {
	vault := NewVault(testKDFParams())
	path := writeTestWallet(t, vault, []byte("right"))

	called := false
	err := WithWalletKey(vault, path, []byte("wrong"), func([]byte) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}
