package wallet

import (
	"context"
	"fmt"

	"github.com/dmarkin/bundler-wallet/internal/common"
	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/model"
)

// Balance gets wallet balance
func (s *Service) Balance(ctx context.Context, filePath string) (*model.BalanceResponse, error) {
	// Read address from file (no decryption)
	address, err := crypto.ReadWalletAddress(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet address: %w", err)
	}

	lamports, err := s.chain.GetBalanceLamports(ctx, address)
	if err != nil {
		return nil, err
	}

	return &model.BalanceResponse{
		Address: address,
		SOL:     common.LamportsToSOL(lamports),
	}, nil
}
