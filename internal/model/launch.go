package model

import "time"

// TokenMetadata describes the asset to create in a launch operation.
type TokenMetadata struct {
	Name                string  `json:"name" binding:"required"`
	Symbol              string  `json:"symbol" binding:"required"`
	Description         string  `json:"description,omitempty"`
	ImageURL            string  `json:"imageUrl,omitempty"`
	Website             string  `json:"website,omitempty"`
	InitialLiquiditySOL float64 `json:"initialLiquiditySol"`
}

// LaunchSnipeRequest represents request for POST /launch-snipe
type LaunchSnipeRequest struct {
	Metadata      TokenMetadata `json:"metadata"`
	BuyPercentage float64       `json:"buyPercentage"` // fraction of liquidity, 0..1
	MaxBuySOL     float64       `json:"maxBuySol"`
	SlippageBps   uint16        `json:"slippageBps"`
	UseBundle     bool          `json:"useBundle"`
	TipLamports   uint64        `json:"tipLamports"`
}

// LaunchSnipeResponse represents response for POST /launch-snipe.
// EstimatedProfitSOL is a heuristic placeholder figure, not a prediction
// of any kind; clients must treat it as decorative.
type LaunchSnipeResponse struct {
	State              string     `json:"state"`
	MintAddress        string     `json:"mintAddress"`
	LaunchSignature    string     `json:"launchSignature"`
	SnipeSignature     string     `json:"snipeSignature,omitempty"`
	BundleID           string     `json:"bundleId,omitempty"`
	BuyAmountLamports  uint64     `json:"buyAmountLamports"`
	LaunchedAt         time.Time  `json:"launchedAt"`
	SnipedAt           *time.Time `json:"snipedAt,omitempty"`
	EstimatedProfitSOL float64    `json:"estimatedProfitSol"`
	MevProtected       bool       `json:"mevProtected"`
}

// BundleBuyRequest represents request for POST /bundle/buy
type BundleBuyRequest struct {
	WalletPaths      []string `json:"walletPaths" binding:"required"`
	TokenAddress     string   `json:"tokenAddress" binding:"required"`
	AmountPerWallet  uint64   `json:"amountPerWallet"` // lamports
	UseMevProtection bool     `json:"useMevProtection"`
}

// BundleBuyResponse represents response for POST /bundle/buy
type BundleBuyResponse struct {
	OperationID      string   `json:"operationId"`
	Signatures       []string `json:"signatures"`
	TotalWallets     int      `json:"totalWallets"`
	TotalAmount      uint64   `json:"totalAmount"`
	SuccessCount     int      `json:"successCount"`
	ErrorCount       int      `json:"errorCount"`
	ExecutionTimeMS  int64    `json:"executionTimeMs"`
	UseMevProtection bool     `json:"useMevProtection"`
}
