package wallet

import (
	"context"
	"fmt"

	"github.com/dmarkin/bundler-wallet/internal/common"
	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/guard"
	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
)

const solFeeLamports = 5000 // Fee in lamports (0.000005 SOL)

// Transfer sends a SOL transaction from the wallet at filePath.
// password must be []byte for security (caller should zero it after use)
func (s *Service) Transfer(ctx context.Context, filePath string, password []byte, req *model.TransferRequest) (*model.TransferResponse, error) {
	// Validate recipient address
	toPubkey, err := solana.PublicKeyFromBase58(req.ToAddress)
	if err != nil {
		return nil, &model.ValidationError{Field: "toAddress", Message: "invalid Solana address"}
	}

	// Convert amount to lamports (string-based, no float precision loss)
	lamports, err := common.SOLToLamports(req.Amount)
	if err != nil {
		return nil, &model.ValidationError{Field: "amount", Message: "invalid amount: " + err.Error()}
	}
	if lamports == 0 {
		return nil, &model.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}

	// Read address from file
	address, err := crypto.ReadWalletAddress(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet address: %w", err)
	}

	// Rate limit and transfer policy are checked before anything touches
	// the key material or the network.
	if err := s.guard.CheckAndIncrement(address, guard.CategoryTransaction); err != nil {
		return nil, err
	}
	if err := s.guard.ValidateTransfer(address, req.ToAddress, lamports); err != nil {
		return nil, err
	}

	// Check SOL sufficiency (amount + fee)
	balance, err := s.chain.GetBalanceLamports(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if balance < lamports+solFeeLamports {
		var maxLamports uint64
		if balance > solFeeLamports {
			maxLamports = balance - solFeeLamports
		}
		return nil, &model.ValidationError{
			Field: "amount",
			Message: fmt.Sprintf("insufficient SOL balance. Transaction fee: %s SOL. Max you can send: %s SOL",
				common.LamportsToSOL(solFeeLamports), common.LamportsToSOL(maxLamports)),
		}
	}

	blockhash, err := s.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	// Decrypt, sign and send. The private key exists only inside the
	// callback and is wiped on every exit path.
	var sig solana.Signature
	err = crypto.WithWalletKey(s.vault, filePath, password, func(privateKey []byte) error {
		if len(privateKey) != 64 {
			return &model.CryptoError{Message: "invalid private key length"}
		}

		signer := make(solana.PrivateKey, len(privateKey))
		copy(signer, privateKey)
		defer clear(signer)

		// Verify key matches the file's address
		if signer.PublicKey().String() != address {
			return &model.CryptoError{Message: "private key does not match address"}
		}

		tx, buildErr := s.builder.BuildTransfer(signer, toPubkey, lamports, blockhash)
		if buildErr != nil {
			return buildErr
		}

		var sendErr error
		sig, sendErr = s.submitter.SendOne(ctx, tx)
		return sendErr
	})
	if err != nil {
		return nil, err
	}

	// Count against the sender's daily volume only after the send landed.
	s.guard.RecordTransfer(address, lamports)

	s.log.Info().
		Str("from", address).
		Str("to", req.ToAddress).
		Uint64("lamports", lamports).
		Str("tx_id", sig.String()).
		Msg("transfer sent")

	return &model.TransferResponse{TxID: sig.String()}, nil
}
