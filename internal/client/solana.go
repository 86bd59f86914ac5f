package client

import (
	"context"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient is a thin wrapper over the Solana JSON-RPC client. Every call
// is individually timeout-bounded so a stuck RPC affects only its own
// operation. Transport failures are wrapped as NetworkError; they are the
// only class the submitter's retry policy re-attempts.
type SolanaClient struct {
	rpcClient *rpc.Client
	rpcURL    string
	timeout   time.Duration
}

// NewSolanaClient creates a client for the given RPC endpoint.
func NewSolanaClient(rpcURL string, timeout time.Duration) *SolanaClient {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		rpcURL:    rpcURL,
		timeout:   timeout,
	}
}

// GetLatestBlockhash fetches the blockhash transactions must reference.
func (c *SolanaClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, &model.NetworkError{Op: "getLatestBlockhash", Err: err}
	}
	return out.Value.Blockhash, nil
}

// GetBalanceLamports gets the SOL balance for an address in lamports.
func (c *SolanaClient) GetBalanceLamports(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, &model.ValidationError{Field: "address", Message: "invalid Solana address"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	balance, err := c.rpcClient.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, &model.NetworkError{Op: "getBalance", Err: err}
	}
	return balance.Value, nil
}

// SendTransaction broadcasts a signed transaction. Once this returns without
// error the transaction cannot be retracted.
func (c *SolanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sig, err := c.rpcClient.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, &model.NetworkError{Op: "sendTransaction", Err: err}
	}
	return sig, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account of the given size.
func (c *SolanaClient) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rent, err := c.rpcClient.GetMinimumBalanceForRentExemption(ctx, size, rpc.CommitmentFinalized)
	if err != nil {
		return 0, &model.NetworkError{Op: "getMinimumBalanceForRentExemption", Err: err}
	}
	return rent, nil
}

// URL returns the endpoint this client talks to.
func (c *SolanaClient) URL() string { return c.rpcURL }
