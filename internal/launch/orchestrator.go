// Package launch sequences a token launch transaction and an immediate buy
// ("snipe") of the launched asset as one protected unit.
package launch

import (
	"context"
	"math/rand"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/bundle"
	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// State is the lifecycle of one launch+snipe run. Terminal states are
// final.
type State string

const (
	StateCreated            State = "created"
	StateLaunchBuilt        State = "launch_built"
	StateSnipeBuilt         State = "snipe_built"
	StateSubmitted          State = "submitted"
	StateConfirmed          State = "confirmed"
	StatePartiallyConfirmed State = "partially_confirmed"
	StateFallbackCompleted  State = "fallback_completed"
	StateFailed             State = "failed"
)

// Plan configures one launch+snipe run.
type Plan struct {
	Enabled           bool
	LiquidityLamports uint64
	BuyPercentage     float64 // fraction of liquidity, 0..1
	MaxBuyLamports    uint64  // absolute cap on the snipe amount
	SlippageBps       uint16
	UseBundle         bool
	TipLamports       uint64
	RandomizeTiming   bool
	JitterMin         time.Duration
	JitterMax         time.Duration
	SettleDelay       time.Duration // fallback delay between launch and snipe
}

// Result is the outcome of a run. EstimatedProfitSOL is an explicitly
// heuristic placeholder figure and never a prediction.
type Result struct {
	State              State
	MintAddress        string
	LaunchSignature    string
	SnipeSignature     string // empty when the snipe leg did not land
	BundleID           string
	BuyAmountLamports  uint64
	LaunchedAt         time.Time
	SnipedAt           *time.Time
	EstimatedProfitSOL float64
	MevProtected       bool
}

// Orchestrator drives the launch+snipe state machine. It builds both legs
// up front, optionally inserts one MEV-timing jitter delay, then submits
// them atomically via the relay or sequentially as a fallback.
type Orchestrator struct {
	builder     *bundle.Builder
	submitter   *bundle.Submitter
	blockhashes bundle.BlockhashProvider
	log         zerolog.Logger

	sleep  func(ctx context.Context, d time.Duration) error // injectable for tests
	jitter func(min, max time.Duration) time.Duration
}

// New creates an Orchestrator.
func New(builder *bundle.Builder, submitter *bundle.Submitter, blockhashes bundle.BlockhashProvider, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		builder:     builder,
		submitter:   submitter,
		blockhashes: blockhashes,
		log:         log,
		sleep:       sleepCtx,
		jitter:      randomJitter,
	}
}

// BuyAmount computes the snipe size: liquidity x buy percentage, capped at
// the absolute maximum.
func (p *Plan) BuyAmount() uint64 {
	amount := uint64(float64(p.LiquidityLamports) * p.BuyPercentage)
	if p.MaxBuyLamports > 0 && amount > p.MaxBuyLamports {
		amount = p.MaxBuyLamports
	}
	return amount
}

// Run executes one launch+snipe. The launch leg, once broadcast, is
// irrevocable: if the snipe leg fails afterwards the result is
// PartiallyConfirmed and the mint address plus launch signature are still
// surfaced.
func (o *Orchestrator) Run(ctx context.Context, signer solana.PrivateKey, meta model.TokenMetadata, plan *Plan) (*Result, error) {
	result := &Result{State: StateCreated}

	if !plan.Enabled {
		result.State = StateFailed
		return result, &model.ValidationError{Field: "plan", Message: "launch+snipe is disabled"}
	}

	buyAmount := plan.BuyAmount()
	result.BuyAmountLamports = buyAmount

	blockhash, err := o.blockhashes.GetLatestBlockhash(ctx)
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	// The mint keypair fixes the asset address before anything broadcasts.
	mintSigner, err := solana.NewRandomPrivateKey()
	if err != nil {
		result.State = StateFailed
		return result, &model.CryptoError{Message: "failed to generate mint keypair: " + err.Error()}
	}
	result.MintAddress = mintSigner.PublicKey().String()

	launchTx, err := o.builder.BuildLaunch(signer, mintSigner, meta, plan.LiquidityLamports, blockhash)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.State = StateLaunchBuilt

	snipeTx, err := o.builder.BuildSnipe(signer, mintSigner.PublicKey(), buyAmount, plan.SlippageBps, blockhash)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.State = StateSnipeBuilt

	// One jitter delay before submission, never per retry.
	if plan.RandomizeTiming && plan.JitterMax > 0 {
		if err := o.sleep(ctx, o.jitter(plan.JitterMin, plan.JitterMax)); err != nil {
			result.State = StateFailed
			return result, err
		}
	}

	if plan.UseBundle && o.submitter.AtomicAvailable() {
		return o.submitAtomic(ctx, launchTx, snipeTx, plan, result)
	}
	return o.submitFallback(ctx, launchTx, snipeTx, plan, result)
}

func (o *Orchestrator) submitAtomic(ctx context.Context, launchTx, snipeTx *bundle.SignedTransaction, plan *Plan, result *Result) (*Result, error) {
	result.State = StateSubmitted
	result.MevProtected = true

	bundleResult, err := o.submitter.SubmitAtomic(ctx, &bundle.Bundle{
		Transactions: []*bundle.SignedTransaction{launchTx, snipeTx},
		TipLamports:  plan.TipLamports,
	})
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	now := time.Now()
	result.State = StateConfirmed
	result.BundleID = bundleResult.BundleID
	result.LaunchSignature = launchTx.Tx.Signatures[0].String()
	result.SnipeSignature = snipeTx.Tx.Signatures[0].String()
	result.LaunchedAt = now
	result.SnipedAt = &now
	result.EstimatedProfitSOL = estimateProfit(result.BuyAmountLamports)

	o.log.Info().
		Str("mint", result.MintAddress).
		Str("bundle_id", result.BundleID).
		Uint64("buy_lamports", result.BuyAmountLamports).
		Msg("launch+snipe bundle confirmed by relay")
	return result, nil
}

// submitFallback sends the legs sequentially: launch, settle delay, snipe.
func (o *Orchestrator) submitFallback(ctx context.Context, launchTx, snipeTx *bundle.SignedTransaction, plan *Plan, result *Result) (*Result, error) {
	result.State = StateSubmitted

	launchSig, err := o.submitter.SendOne(ctx, launchTx)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.LaunchSignature = launchSig.String()
	result.LaunchedAt = time.Now()

	if err := o.sleep(ctx, plan.SettleDelay); err != nil {
		// Launch is already on the wire; never discard its outcome.
		result.State = StatePartiallyConfirmed
		return result, &model.PartialFailureError{Completed: 1, Total: 2, Err: err}
	}

	snipeSig, err := o.submitter.SendOne(ctx, snipeTx)
	if err != nil {
		result.State = StatePartiallyConfirmed
		o.log.Warn().
			Str("mint", result.MintAddress).
			Str("launch_signature", result.LaunchSignature).
			Err(err).
			Msg("snipe leg failed after launch broadcast")
		return result, &model.PartialFailureError{Completed: 1, Total: 2, Err: err}
	}

	now := time.Now()
	result.State = StateFallbackCompleted
	result.SnipeSignature = snipeSig.String()
	result.SnipedAt = &now
	result.EstimatedProfitSOL = estimateProfit(result.BuyAmountLamports)
	return result, nil
}

// estimateProfit produces the heuristic placeholder profit figure reported
// at the end of a successful run. It is not predictive in any way.
func estimateProfit(buyLamports uint64) float64 {
	buySOL := float64(buyLamports) / float64(solana.LAMPORTS_PER_SOL)
	return buySOL * 10.0 * 0.9 // optimistic 10x less a notional exit haircut
}

func randomJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
