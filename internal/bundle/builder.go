package bundle

import (
	"fmt"

	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Builder constructs signed transactions from instruction sets and signer
// keys. Launch and snipe instruction encodings come from the injected
// program adapters.
type Builder struct {
	launchAdapter LaunchProgramAdapter
	swapAdapter   SwapProgramAdapter
}

// NewBuilder creates a Builder with the given program adapters. Either
// adapter may be nil if the corresponding operation is never used.
func NewBuilder(launchAdapter LaunchProgramAdapter, swapAdapter SwapProgramAdapter) *Builder {
	return &Builder{launchAdapter: launchAdapter, swapAdapter: swapAdapter}
}

// BuildTransfer builds and signs a plain SOL transfer.
func (b *Builder) BuildTransfer(signer solana.PrivateKey, recipient solana.PublicKey, amount uint64, recentBlockhash solana.Hash) (*SignedTransaction, error) {
	if amount == 0 {
		return nil, &model.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}

	instruction := system.NewTransferInstruction(amount, signer.PublicKey(), recipient).Build()
	return b.signTransaction([]solana.Instruction{instruction}, signer.PublicKey(), recentBlockhash, signer)
}

// BuildLaunch builds and signs a "create and initialize asset" transaction.
// The mint keypair co-signs so the asset address is fixed before broadcast.
func (b *Builder) BuildLaunch(signer, mintSigner solana.PrivateKey, meta model.TokenMetadata, liquidityLamports uint64, recentBlockhash solana.Hash) (*SignedTransaction, error) {
	if b.launchAdapter == nil {
		return nil, &model.ValidationError{Field: "launchAdapter", Message: "no launch program adapter configured"}
	}
	if meta.Name == "" || meta.Symbol == "" {
		return nil, &model.ValidationError{Field: "metadata", Message: "name and symbol are required"}
	}
	if liquidityLamports == 0 {
		return nil, &model.ValidationError{Field: "liquidity", Message: "must be greater than zero"}
	}

	instructions, err := b.launchAdapter.LaunchInstructions(signer.PublicKey(), mintSigner.PublicKey(), meta, liquidityLamports)
	if err != nil {
		return nil, fmt.Errorf("failed to compose launch instructions: %w", err)
	}

	return b.signTransaction(instructions, signer.PublicKey(), recentBlockhash, signer, mintSigner)
}

// BuildSnipe builds and signs a "buy asset" transaction for a freshly
// launched asset.
func (b *Builder) BuildSnipe(signer solana.PrivateKey, assetMint solana.PublicKey, buyAmountLamports uint64, slippageBps uint16, recentBlockhash solana.Hash) (*SignedTransaction, error) {
	if b.swapAdapter == nil {
		return nil, &model.ValidationError{Field: "swapAdapter", Message: "no swap program adapter configured"}
	}
	if buyAmountLamports == 0 {
		return nil, &model.ValidationError{Field: "buyAmount", Message: "must be greater than zero"}
	}

	instructions, err := b.swapAdapter.BuyInstructions(signer.PublicKey(), assetMint, buyAmountLamports, slippageBps)
	if err != nil {
		return nil, fmt.Errorf("failed to compose buy instructions: %w", err)
	}

	return b.signTransaction(instructions, signer.PublicKey(), recentBlockhash, signer)
}

// signTransaction assembles, signs and serializes a transaction for the
// given fee payer and signer set.
func (b *Builder) signTransaction(instructions []solana.Instruction, payer solana.PublicKey, recentBlockhash solana.Hash, signers ...solana.PrivateKey) (*SignedTransaction, error) {
	tx, err := solana.NewTransaction(
		instructions,
		recentBlockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	signerKeys := make([]solana.PublicKey, 0, len(signers))
	for _, s := range signers {
		signerKeys = append(signerKeys, s.PublicKey())
	}

	return &SignedTransaction{
		Tx:         tx,
		Raw:        raw,
		SignerKeys: signerKeys,
		Blockhash:  recentBlockhash,
	}, nil
}
