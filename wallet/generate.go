package wallet

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/skip2/go-qrcode"
)

const (
	networkSolana = "solana"
)

// FileExistsError is an error when file already exists and is not empty
type FileExistsError struct {
	Message string
}

func (e *FileExistsError) Error() string {
	return e.Message
}

// IsFileExistsError checks if error is FileExistsError
func IsFileExistsError(err error) bool {
	_, ok := err.(*FileExistsError)
	return ok
}

// Generate creates a new Solana wallet and saves it to a .cwt file.
// Returns the generated public address on success.
// password must be []byte for security (caller should zero it after use)
func (s *Service) Generate(filePath string, password []byte) (address string, err error) {
	// Check file extension (.cwt)
	ext := filepath.Ext(filePath) // e.g. "wallet.cwt" → ".cwt"
	if ext != ".cwt" {
		return "", fmt.Errorf("file must have .cwt extension")
	}

	// Check file existence
	if fileInfo, statErr := os.Stat(filePath); statErr == nil && fileInfo.Size() > 0 {
		return "", &FileExistsError{Message: "file is not empty"}
	}

	// Generate new Solana keypair
	keypair := solana.NewWallet()
	defer clear(keypair.PrivateKey)

	// Get address (public key)
	address = keypair.PublicKey().String()

	// Generate QR code
	qrCode, err := generateQRCode(address)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	// Prepare wallet data - PrivateKey stored as []byte (will be base64 encoded in JSON)
	walletData := &model.WalletData{
		PrivateKey: keypair.PrivateKey,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}

	// Seal and write to file
	if err := crypto.EncryptWalletFile(s.vault, filePath, networkSolana, address, qrCode, walletData, password, crypto.KDFScrypt); err != nil {
		return "", fmt.Errorf("failed to encrypt wallet: %w", err)
	}

	s.log.Info().Str("address", address).Msg("wallet generated")
	return address, nil
}

// generateQRCode generates QR code of address in base64
func generateQRCode(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	// Get PNG image
	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}

	// Encode to base64
	return base64.StdEncoding.EncodeToString(png), nil
}
