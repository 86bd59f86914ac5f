package model

// WalletFile represents the .cwt wallet file structure. The private key is
// stored as a single opaque secret blob (salt + nonce + ciphertext) owned by
// the persistence layer; only the vault can open it.
type WalletFile struct {
	Network string `json:"network"`
	Address string `json:"address"`
	QR      string `json:"QR"`
	Secret  string `json:"secret"` // base64 of salt||nonce||ciphertext
	KDF     string `json:"kdf"`
}

// WalletData represents decrypted wallet data
type WalletData struct {
	PrivateKey []byte `json:"privateKey"` // 64 bytes (stored as base64 in JSON)
	CreatedAt  string `json:"createdAt"`
}
