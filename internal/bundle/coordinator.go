package bundle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BlockhashProvider supplies the reference blockhash for new transactions.
// Satisfied by client.SolanaClient.
type BlockhashProvider interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// BuyRequest fans a single buy order out across many wallets.
type BuyRequest struct {
	Wallets          []crypto.KeyHandle
	AssetMint        solana.PublicKey
	AmountPerWallet  uint64 // lamports
	Password         []byte
	SlippageBps      uint16
	UseMevProtection bool
	TipLamports      uint64
}

// WalletOutcome is the per-wallet result, ordered by wallet index.
type WalletOutcome struct {
	Index     int
	PublicKey string
	Signature solana.Signature
	Err       error
}

// BuyResult is the aggregate record of a multi-wallet buy. The operation
// never synthesizes an "all succeeded" answer: callers must read
// SuccessCount and ErrorCount.
type BuyResult struct {
	OperationID  string
	BundleID     string // set on the atomic path
	Outcomes     []WalletOutcome
	TotalWallets int
	TotalAmount  uint64
	SuccessCount int
	ErrorCount   int
	Elapsed      time.Duration
	MevProtected bool
}

// BuyCoordinator fans a buy order out across wallets: per-wallet scoped
// signer decryption and transaction building run concurrently with bounded
// fan-out; submission is either one atomic bundle (MEV protection) or a
// throttled best-effort sequence.
type BuyCoordinator struct {
	vault       *crypto.Vault
	builder     *Builder
	submitter   *Submitter
	blockhashes BlockhashProvider
	maxFanout   int
	log         zerolog.Logger
}

// NewBuyCoordinator creates a BuyCoordinator.
func NewBuyCoordinator(vault *crypto.Vault, builder *Builder, submitter *Submitter, blockhashes BlockhashProvider, maxFanout int, log zerolog.Logger) *BuyCoordinator {
	if maxFanout < 1 {
		maxFanout = 4
	}
	return &BuyCoordinator{
		vault:       vault,
		builder:     builder,
		submitter:   submitter,
		blockhashes: blockhashes,
		maxFanout:   maxFanout,
		log:         log,
	}
}

// ExecuteBuy runs the multi-wallet buy. With MEV protection all built
// transactions go out as one atomic bundle; without it they are sent
// sequentially and, unlike the raw submitter's fail-fast default, a failed
// wallet does not stop the rest: each outcome is recorded and the
// coordinator moves on.
func (c *BuyCoordinator) ExecuteBuy(ctx context.Context, req *BuyRequest) (*BuyResult, error) {
	if len(req.Wallets) == 0 {
		return nil, &model.ValidationError{Field: "wallets", Message: "no wallets provided"}
	}
	if req.AmountPerWallet == 0 {
		return nil, &model.ValidationError{Field: "amountPerWallet", Message: "must be greater than zero"}
	}

	start := time.Now()
	operationID := uuid.NewString()

	blockhash, err := c.blockhashes.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blockhash: %w", err)
	}

	// Build one transaction per wallet concurrently. Aggregation is by
	// wallet index, so the result order is deterministic regardless of
	// completion order.
	txs := make([]*SignedTransaction, len(req.Wallets))
	buildErrs := make([]error, len(req.Wallets))

	sem := make(chan struct{}, c.maxFanout)
	var wg sync.WaitGroup
	for i := range req.Wallets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			txs[i], buildErrs[i] = c.buildWalletBuy(&req.Wallets[i], req, blockhash)
		}(i)
	}
	wg.Wait()

	result := &BuyResult{
		OperationID:  operationID,
		Outcomes:     make([]WalletOutcome, len(req.Wallets)),
		TotalWallets: len(req.Wallets),
		TotalAmount:  req.AmountPerWallet * uint64(len(req.Wallets)),
		MevProtected: req.UseMevProtection,
	}
	for i := range req.Wallets {
		result.Outcomes[i] = WalletOutcome{Index: i, PublicKey: req.Wallets[i].PublicKey, Err: buildErrs[i]}
	}

	if req.UseMevProtection {
		err = c.submitAtomic(ctx, txs, buildErrs, req.TipLamports, result)
	} else {
		err = c.submitBestEffort(ctx, txs, result)
	}
	result.Elapsed = time.Since(start)

	for i := range result.Outcomes {
		if result.Outcomes[i].Err != nil {
			result.ErrorCount++
		} else {
			result.SuccessCount++
		}
	}

	c.log.Info().
		Str("operation_id", operationID).
		Int("wallets", result.TotalWallets).
		Int("succeeded", result.SuccessCount).
		Int("failed", result.ErrorCount).
		Bool("mev_protected", req.UseMevProtection).
		Dur("elapsed", result.Elapsed).
		Msg("bundle buy finished")

	return result, err
}

// buildWalletBuy decrypts one wallet's signer for the duration of the
// signing step and builds its buy transaction.
func (c *BuyCoordinator) buildWalletBuy(handle *crypto.KeyHandle, req *BuyRequest, blockhash solana.Hash) (*SignedTransaction, error) {
	var tx *SignedTransaction
	err := crypto.OpenSignerKey(c.vault, &handle.Secret, req.Password, func(keyBytes []byte) error {
		if len(keyBytes) != 64 {
			return &model.ValidationError{Field: "privateKey", Message: "invalid private key length"}
		}
		signer := make(solana.PrivateKey, len(keyBytes))
		copy(signer, keyBytes)
		defer clear(signer)

		var buildErr error
		tx, buildErr = c.builder.BuildSnipe(signer, req.AssetMint, req.AmountPerWallet, req.SlippageBps, blockhash)
		return buildErr
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// submitAtomic requires every wallet's transaction to have built; the relay
// is handed the full set as one unit.
func (c *BuyCoordinator) submitAtomic(ctx context.Context, txs []*SignedTransaction, buildErrs []error, tip uint64, result *BuyResult) error {
	for i, buildErr := range buildErrs {
		if buildErr != nil {
			for j := range result.Outcomes {
				if result.Outcomes[j].Err == nil {
					result.Outcomes[j].Err = &model.SubmissionError{Message: "aborted: atomic bundle requires every wallet to build"}
				}
			}
			return fmt.Errorf("wallet %d failed to build: %w", i, buildErr)
		}
	}

	bundleResult, err := c.submitter.SubmitAtomic(ctx, &Bundle{Transactions: txs, TipLamports: tip})
	if err != nil {
		for i := range result.Outcomes {
			result.Outcomes[i].Err = err
		}
		return err
	}

	result.BundleID = bundleResult.BundleID
	for i, tx := range txs {
		if len(tx.Tx.Signatures) > 0 {
			result.Outcomes[i].Signature = tx.Tx.Signatures[0]
		}
	}
	return nil
}

// submitBestEffort sends each built transaction in wallet order with the
// configured inter-send delay, recording failures and continuing.
func (c *BuyCoordinator) submitBestEffort(ctx context.Context, txs []*SignedTransaction, result *BuyResult) error {
	sent := 0
	for i, tx := range txs {
		if result.Outcomes[i].Err != nil {
			continue // build failed, already recorded
		}
		if sent > 0 {
			if err := sleepCtx(ctx, c.submitter.cfg.InterSendDelay); err != nil {
				return err
			}
		}

		sig, err := c.submitter.SendOne(ctx, tx)
		if err != nil {
			result.Outcomes[i].Err = err
			c.log.Warn().Int("wallet", i).Err(err).Msg("wallet buy failed, continuing")
			continue
		}
		result.Outcomes[i].Signature = sig
		sent++
	}
	return nil
}

// Signatures returns the collected signature strings in wallet order.
func (r *BuyResult) Signatures() []string {
	sigs := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Err == nil && !o.Signature.IsZero() {
			sigs = append(sigs, o.Signature.String())
		}
	}
	return sigs
}
