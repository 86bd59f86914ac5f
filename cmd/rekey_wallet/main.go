// Re-seals a .cwt wallet under a different password or KDF method. The
// original file is left untouched; the re-sealed wallet is written to -out.
// Usage: go run ./cmd/rekey_wallet -file wallet.cwt -out wallet.new.cwt -kdf argon2id
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/model"

	"golang.org/x/term"
)

func main() {
	filePath := flag.String("file", "", "wallet file to re-seal")
	outPath := flag.String("out", "", "output path (default: <file>.new.cwt)")
	kdf := flag.String("kdf", string(crypto.KDFScrypt), "target KDF method: argon2id, argon2i, pbkdf2, scrypt, hkdf")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: rekey_wallet -file wallet.cwt [-out wallet.new.cwt] [-kdf argon2id]")
		os.Exit(1)
	}
	if *outPath == "" {
		*outPath = *filePath + ".new.cwt"
	}

	currentPassword, err := readPassword("Current password: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer clear(currentPassword)

	newPassword, err := readPassword("New password: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer clear(newPassword)

	vault := crypto.NewVault(crypto.DefaultKDFParams())

	walletFile, handle, err := crypto.ReadWalletFile(*filePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read failed:", err)
		os.Exit(1)
	}

	err = vault.WithSecret(&handle.Secret, currentPassword, func(plaintext []byte) error {
		var walletData model.WalletData
		if err := json.Unmarshal(plaintext, &walletData); err != nil {
			return fmt.Errorf("unexpected wallet data format: %w", err)
		}
		defer clear(walletData.PrivateKey)

		return crypto.EncryptWalletFile(vault, *outPath, walletFile.Network,
			walletFile.Address, walletFile.QR, &walletData, newPassword,
			crypto.KDFMethod(*kdf))
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "re-seal failed:", err)
		os.Exit(1)
	}

	fmt.Printf("re-sealed %s -> %s (%s)\n", *filePath, *outPath, *kdf)
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("password cannot be empty")
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	clear(raw)
	return out, nil
}
