package crypto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmarkin/bundler-wallet/internal/model"
)

// EncryptWalletFile seals wallet data under the password and writes it to a
// .cwt file. password must be []byte for security (caller should zero it
// after use).
func EncryptWalletFile(v *Vault, filePath, network, address, qrCode string, walletData *model.WalletData, password []byte, method KDFMethod) error {
	if !strings.HasSuffix(filePath, ".cwt") {
		return errors.New("file must have .cwt extension")
	}

	// Refuse to overwrite an existing non-empty wallet
	if fileInfo, err := os.Stat(filePath); err == nil && fileInfo.Size() > 0 {
		return fmt.Errorf("file is not empty: %w", os.ErrExist)
	}

	plaintext, err := json.Marshal(walletData)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet data: %w", err)
	}
	defer clear(plaintext) // wipe plaintext bytes from memory

	secret, err := v.Seal(password, plaintext, method)
	if err != nil {
		return fmt.Errorf("failed to seal wallet data: %w", err)
	}

	walletFile := model.WalletFile{
		Network: network,
		Address: address,
		QR:      qrCode,
		Secret:  base64.StdEncoding.EncodeToString(secret.Encode()),
		KDF:     string(method),
	}

	fileData, err := json.MarshalIndent(walletFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallet file: %w", err)
	}

	// UTF-8 BOM for proper display in Windows
	utf8BOM := []byte{0xEF, 0xBB, 0xBF}
	fileDataWithBOM := append(utf8BOM, fileData...)

	if err := os.WriteFile(filePath, fileDataWithBOM, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// ReadWalletFile reads and parses a .cwt file without decrypting it. The
// returned KeyHandle owns only the encrypted secret.
func ReadWalletFile(filePath string) (*model.WalletFile, *KeyHandle, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.New("file does not exist")
		}
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	if fileInfo.Size() == 0 {
		return nil, nil, errors.New("file is empty")
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Skip UTF-8 BOM if present
	if len(fileData) >= 3 && fileData[0] == 0xEF && fileData[1] == 0xBB && fileData[2] == 0xBF {
		fileData = fileData[3:]
	}

	var walletFile model.WalletFile
	if err := json.Unmarshal(fileData, &walletFile); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal wallet file: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(walletFile.Secret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode secret: %w", err)
	}

	method := KDFMethod(walletFile.KDF)
	if method == "" {
		method = KDFScrypt
	}
	secret, err := DecodeSecret(raw, method)
	if err != nil {
		return nil, nil, err
	}

	return &walletFile, &KeyHandle{PublicKey: walletFile.Address, Secret: *secret}, nil
}

// ReadWalletAddress reads only the address from a .cwt file (no decryption).
func ReadWalletAddress(filePath string) (string, error) {
	walletFile, _, err := ReadWalletFile(filePath)
	if err != nil {
		return "", err
	}
	return walletFile.Address, nil
}

// OpenSignerKey decrypts a wallet secret and hands the raw private key to
// fn for the duration of the call. The key bytes are wiped before
// OpenSignerKey returns, on every exit path.
func OpenSignerKey(v *Vault, secret *EncryptedSecret, password []byte, fn func(privateKey []byte) error) error {
	return v.WithSecret(secret, password, func(plaintext []byte) error {
		var walletData model.WalletData
		if err := json.Unmarshal(plaintext, &walletData); err != nil {
			return fmt.Errorf("failed to unmarshal wallet data: %w", err)
		}
		defer clear(walletData.PrivateKey)
		return fn(walletData.PrivateKey)
	})
}

// WithWalletKey opens the wallet file, decrypts the private key under the
// password and hands it to fn for the duration of the call.
func WithWalletKey(v *Vault, filePath string, password []byte, fn func(privateKey []byte) error) error {
	_, handle, err := ReadWalletFile(filePath)
	if err != nil {
		return err
	}
	return OpenSignerKey(v, &handle.Secret, password, fn)
}
