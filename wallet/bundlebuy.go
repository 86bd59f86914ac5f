package wallet

import (
	"context"
	"fmt"

	"github.com/dmarkin/bundler-wallet/internal/bundle"
	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/guard"
	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
)

// BundleBuy buys one asset from every wallet in the request, as one atomic
// bundle when MEV protection is on or as a throttled best-effort sequence
// otherwise.
// password must be []byte for security (caller should zero it after use)
func (s *Service) BundleBuy(ctx context.Context, password []byte, req *model.BundleBuyRequest) (*model.BundleBuyResponse, error) {
	if len(req.WalletPaths) == 0 {
		return nil, &model.ValidationError{Field: "walletPaths", Message: "no wallets provided"}
	}
	mint, err := solana.PublicKeyFromBase58(req.TokenAddress)
	if err != nil {
		return nil, &model.ValidationError{Field: "tokenAddress", Message: "invalid Solana address"}
	}
	if req.AmountPerWallet == 0 {
		return nil, &model.ValidationError{Field: "amountPerWallet", Message: "must be greater than zero"}
	}

	// Every wallet must load and pass policy before anything is built or
	// sent: a rejected wallet rejects the whole operation up front.
	handles := make([]crypto.KeyHandle, 0, len(req.WalletPaths))
	for _, path := range req.WalletPaths {
		_, handle, err := crypto.ReadWalletFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read wallet %q: %w", path, err)
		}
		if err := s.guard.CheckAndIncrement(handle.PublicKey, guard.CategoryTransaction); err != nil {
			return nil, err
		}
		if err := s.guard.ValidateTransfer(handle.PublicKey, req.TokenAddress, req.AmountPerWallet); err != nil {
			return nil, err
		}
		handles = append(handles, *handle)
	}

	result, err := s.coordinator.ExecuteBuy(ctx, &bundle.BuyRequest{
		Wallets:          handles,
		AssetMint:        mint,
		AmountPerWallet:  req.AmountPerWallet,
		Password:         password,
		SlippageBps:      s.slippageBps,
		UseMevProtection: req.UseMevProtection,
	})
	if result == nil {
		return nil, err
	}

	for _, outcome := range result.Outcomes {
		if outcome.Err == nil {
			s.guard.RecordTransfer(outcome.PublicKey, req.AmountPerWallet)
		}
	}

	return &model.BundleBuyResponse{
		OperationID:      result.OperationID,
		Signatures:       result.Signatures(),
		TotalWallets:     result.TotalWallets,
		TotalAmount:      result.TotalAmount,
		SuccessCount:     result.SuccessCount,
		ErrorCount:       result.ErrorCount,
		ExecutionTimeMS:  result.Elapsed.Milliseconds(),
		UseMevProtection: result.MevProtected,
	}, err
}
