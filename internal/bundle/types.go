// Package bundle builds signed transaction sets and submits them either as
// one atomic relay bundle or sequentially with throttling.
package bundle

import (
	"time"

	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
)

// SignedTransaction is a fully signed transaction ready for submission.
type SignedTransaction struct {
	Tx         *solana.Transaction
	Raw        []byte             // serialized signed bytes
	SignerKeys []solana.PublicKey // ordered signer public keys
	Blockhash  solana.Hash
}

// Bundle is an ordered, non-empty list of signed transactions submitted to
// the relay as one unit, with a tip for the block producer.
type Bundle struct {
	Transactions []*SignedTransaction
	TipLamports  uint64
}

// BundleResult is the outcome of an atomic relay submission.
type BundleResult struct {
	BundleID    string
	TipLamports uint64 // the clamped tip actually submitted
	Latency     time.Duration
}

// Outcome is the per-transaction result of a sequential submission.
type Outcome struct {
	Index     int
	Signature solana.Signature
	Err       error
}

// LaunchProgramAdapter composes the abstract "create and initialize asset"
// instruction set. The on-chain program encoding is owned by the adapter
// implementation, not by this package.
type LaunchProgramAdapter interface {
	LaunchInstructions(payer, mint solana.PublicKey, meta model.TokenMetadata, liquidityLamports uint64) ([]solana.Instruction, error)
}

// SwapProgramAdapter composes the abstract "buy asset" instruction set.
// This is a required integration point: there is no built-in fallback that
// degenerates to a placeholder transfer.
type SwapProgramAdapter interface {
	BuyInstructions(buyer, mint solana.PublicKey, amountLamports uint64, slippageBps uint16) ([]solana.Instruction, error)
}
