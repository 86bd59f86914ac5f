package wallet

import (
	"context"
	"fmt"

	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/guard"
	"github.com/dmarkin/bundler-wallet/internal/launch"
	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
)

// LaunchSnipe launches a token and immediately buys it with the wallet at
// filePath. Timing and protection defaults come from the service's launch
// plan template; the request overrides the per-run economics.
// password must be []byte for security (caller should zero it after use)
//
// A partial outcome (launch landed, snipe did not) returns BOTH the
// response describing what landed and the error: callers must not treat a
// non-nil error as "nothing happened".
func (s *Service) LaunchSnipe(ctx context.Context, filePath string, password []byte, req *model.LaunchSnipeRequest) (*model.LaunchSnipeResponse, error) {
	if req.Metadata.Name == "" || req.Metadata.Symbol == "" {
		return nil, &model.ValidationError{Field: "metadata", Message: "name and symbol are required"}
	}
	if req.Metadata.InitialLiquiditySOL <= 0 {
		return nil, &model.ValidationError{Field: "initialLiquiditySol", Message: "must be greater than zero"}
	}
	if req.BuyPercentage < 0 || req.BuyPercentage > 1 {
		return nil, &model.ValidationError{Field: "buyPercentage", Message: "must be between 0 and 1"}
	}

	address, err := crypto.ReadWalletAddress(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet address: %w", err)
	}
	if err := s.guard.CheckAndIncrement(address, guard.CategoryTransaction); err != nil {
		return nil, err
	}

	plan := s.launchPlan // copy of the template
	plan.LiquidityLamports = uint64(req.Metadata.InitialLiquiditySOL * float64(solana.LAMPORTS_PER_SOL))
	if req.MaxBuySOL > 0 {
		plan.MaxBuyLamports = uint64(req.MaxBuySOL * float64(solana.LAMPORTS_PER_SOL))
	}
	plan.UseBundle = req.UseBundle
	plan.TipLamports = req.TipLamports
	if req.BuyPercentage > 0 {
		plan.BuyPercentage = req.BuyPercentage
	}
	plan.SlippageBps = req.SlippageBps
	if plan.SlippageBps == 0 {
		plan.SlippageBps = s.slippageBps
	}

	// The signer must stay decrypted for the whole run: both legs are
	// signed with it.
	var result *launch.Result
	var runErr error
	err = crypto.WithWalletKey(s.vault, filePath, password, func(privateKey []byte) error {
		if len(privateKey) != 64 {
			return &model.CryptoError{Message: "invalid private key length"}
		}
		signer := make(solana.PrivateKey, len(privateKey))
		copy(signer, privateKey)
		defer clear(signer)

		result, runErr = s.orchestrator.Run(ctx, signer, req.Metadata, &plan)
		if result == nil {
			return runErr
		}
		return nil // partial outcomes are reported via runErr alongside the result
	})
	if err != nil {
		return nil, err
	}

	resp := &model.LaunchSnipeResponse{
		State:              string(result.State),
		MintAddress:        result.MintAddress,
		LaunchSignature:    result.LaunchSignature,
		SnipeSignature:     result.SnipeSignature,
		BundleID:           result.BundleID,
		BuyAmountLamports:  result.BuyAmountLamports,
		LaunchedAt:         result.LaunchedAt,
		SnipedAt:           result.SnipedAt,
		EstimatedProfitSOL: result.EstimatedProfitSOL,
		MevProtected:       result.MevProtected,
	}
	return resp, runErr
}
