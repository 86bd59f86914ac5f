package bundle

import (
	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// SystemProgramAdapter is a development stand-in satisfying both program
// adapter contracts with plain system-program instructions. It creates and
// funds accounts; it does NOT encode any launch or swap program. Production
// deployments must inject real program adapters - running against mainnet
// with this adapter moves lamports and nothing else.
type SystemProgramAdapter struct {
	// MintAccountSpace is the account size allocated at launch.
	MintAccountSpace uint64
	// MintAccountOwner is the program that will own the created account.
	MintAccountOwner solana.PublicKey
	// RentExemptMinimum is the lamport floor for the created account,
	// fetched from the cluster at startup. Zero disables the check.
	RentExemptMinimum uint64
}

// NewSystemProgramAdapter returns the development adapter with SPL-mint
// sized accounts owned by the system program.
func NewSystemProgramAdapter() *SystemProgramAdapter {
	return &SystemProgramAdapter{
		MintAccountSpace: 82,
		MintAccountOwner: solana.SystemProgramID,
	}
}

// LaunchInstructions creates the mint account funded with the initial
// liquidity.
func (a *SystemProgramAdapter) LaunchInstructions(payer, mint solana.PublicKey, meta model.TokenMetadata, liquidityLamports uint64) ([]solana.Instruction, error) {
	if liquidityLamports == 0 {
		return nil, &model.ValidationError{Field: "liquidity", Message: "must be greater than zero"}
	}
	if liquidityLamports < a.RentExemptMinimum {
		return nil, &model.ValidationError{Field: "liquidity", Message: "below the rent-exempt minimum for the mint account"}
	}
	createAccount := system.NewCreateAccountInstruction(
		liquidityLamports,
		a.MintAccountSpace,
		a.MintAccountOwner,
		payer,
		mint,
	).Build()
	return []solana.Instruction{createAccount}, nil
}

// BuyInstructions transfers the buy amount to the mint account.
func (a *SystemProgramAdapter) BuyInstructions(buyer, mint solana.PublicKey, amountLamports uint64, slippageBps uint16) ([]solana.Instruction, error) {
	if amountLamports == 0 {
		return nil, &model.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	transfer := system.NewTransferInstruction(amountLamports, buyer, mint).Build()
	return []solana.Instruction{transfer}, nil
}
