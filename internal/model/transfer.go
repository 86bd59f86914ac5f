package model

// TransferRequest represents request for POST /transfer
type TransferRequest struct {
	ToAddress string `json:"toAddress" binding:"required"`
	Amount    string `json:"amount" binding:"required"` // SOL, decimal string
}

// TransferResponse represents response for POST /transfer
type TransferResponse struct {
	TxID string `json:"txId"`
}

// GenerateResponse represents response for POST /wallet/generate
type GenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Address string `json:"address,omitempty"`
}

// BalanceResponse represents response for GET /wallet/balance
type BalanceResponse struct {
	Address string `json:"address"`
	SOL     string `json:"sol"`
}
