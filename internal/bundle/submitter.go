package bundle

import (
	"context"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// Relay submits a transaction set as one unit. Satisfied by RelayClient.
type Relay interface {
	SendBundle(ctx context.Context, txs []*SignedTransaction, tipLamports uint64) (string, error)
}

// TxSender broadcasts a single signed transaction. Satisfied by
// client.SolanaClient.
type TxSender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// SubmitterConfig tunes tip clamping, throttling and retry behavior.
type SubmitterConfig struct {
	MinTipLamports uint64
	MaxTipLamports uint64
	MaxBundleSize  int
	InterSendDelay time.Duration
	RetryAttempts  int // total attempts per network call
	RetryDelay     time.Duration
}

// DefaultSubmitterConfig mirrors production relay limits.
func DefaultSubmitterConfig() SubmitterConfig {
	return SubmitterConfig{
		MinTipLamports: 100_000,
		MaxTipLamports: 5_000_000,
		MaxBundleSize:  5,
		InterSendDelay: 100 * time.Millisecond,
		RetryAttempts:  3,
		RetryDelay:     250 * time.Millisecond,
	}
}

// Submitter submits signed transaction sets, atomically via the relay or
// sequentially with throttling. Only transient network failures are
// retried; validation, signature and relay rejections surface immediately.
type Submitter struct {
	relay  Relay
	sender TxSender
	cfg    SubmitterConfig
	log    zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error // injectable for tests
}

// NewSubmitter creates a Submitter. relay may be nil when atomic bundling
// is disabled; sender may be nil when only the relay path is used.
func NewSubmitter(relay Relay, sender TxSender, cfg SubmitterConfig, log zerolog.Logger) *Submitter {
	if cfg.MaxBundleSize == 0 {
		cfg = DefaultSubmitterConfig()
	}
	return &Submitter{relay: relay, sender: sender, cfg: cfg, log: log, sleep: sleepCtx}
}

// AtomicAvailable reports whether the relay path is configured.
func (s *Submitter) AtomicAvailable() bool { return s.relay != nil }

// ClampTip forces a requested tip into [MinTipLamports, MaxTipLamports].
func (s *Submitter) ClampTip(requested uint64) uint64 {
	if requested < s.cfg.MinTipLamports {
		return s.cfg.MinTipLamports
	}
	if requested > s.cfg.MaxTipLamports {
		return s.cfg.MaxTipLamports
	}
	return requested
}

// SubmitAtomic submits the bundle as one relay unit with the clamped tip.
func (s *Submitter) SubmitAtomic(ctx context.Context, b *Bundle) (*BundleResult, error) {
	if s.relay == nil {
		return nil, &model.SubmissionError{Message: "relay not configured"}
	}
	if len(b.Transactions) == 0 {
		return nil, &model.ValidationError{Field: "bundle", Message: "must contain at least one transaction"}
	}
	if len(b.Transactions) > s.cfg.MaxBundleSize {
		return nil, &model.ValidationError{Field: "bundle", Message: "exceeds maximum bundle size"}
	}

	tip := s.ClampTip(b.TipLamports)
	start := time.Now()

	var bundleID string
	err := s.withRetry(ctx, func() error {
		var sendErr error
		bundleID, sendErr = s.relay.SendBundle(ctx, b.Transactions, tip)
		return sendErr
	})
	if err != nil {
		return nil, err
	}

	latency := time.Since(start)
	s.log.Info().
		Str("bundle_id", bundleID).
		Int("transactions", len(b.Transactions)).
		Uint64("tip_lamports", tip).
		Dur("latency", latency).
		Msg("bundle accepted by relay")

	return &BundleResult{BundleID: bundleID, TipLamports: tip, Latency: latency}, nil
}

// SubmitSequential sends transactions one at a time with a fixed delay
// between sends. Fail-fast: the first failed send aborts the remainder; the
// outcomes collected so far are returned alongside the failure.
func (s *Submitter) SubmitSequential(ctx context.Context, txs []*SignedTransaction, delay time.Duration) ([]Outcome, error) {
	if s.sender == nil {
		return nil, &model.SubmissionError{Message: "transaction sender not configured"}
	}
	if delay <= 0 {
		delay = s.cfg.InterSendDelay
	}

	outcomes := make([]Outcome, 0, len(txs))
	for i, tx := range txs {
		if i > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				return outcomes, err
			}
		}

		sig, err := s.SendOne(ctx, tx)
		if err != nil {
			s.log.Warn().Int("index", i).Err(err).Msg("sequential send aborted")
			return outcomes, err
		}
		outcomes = append(outcomes, Outcome{Index: i, Signature: sig})
	}
	return outcomes, nil
}

// SendOne broadcasts a single transaction with the retry policy applied.
func (s *Submitter) SendOne(ctx context.Context, tx *SignedTransaction) (solana.Signature, error) {
	if s.sender == nil {
		return solana.Signature{}, &model.SubmissionError{Message: "transaction sender not configured"}
	}

	var sig solana.Signature
	err := s.withRetry(ctx, func() error {
		var sendErr error
		sig, sendErr = s.sender.SendTransaction(ctx, tx.Tx)
		return sendErr
	})
	return sig, err
}

// withRetry runs fn up to the configured attempt count, re-attempting only
// retryable (transient network) failures, with a fixed delay in between.
func (s *Submitter) withRetry(ctx context.Context, fn func() error) error {
	attempts := s.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if sleepErr := s.sleep(ctx, s.cfg.RetryDelay); sleepErr != nil {
				return sleepErr
			}
			s.log.Debug().Int("attempt", attempt).Msg("retrying after transient failure")
		}
		err = fn()
		if err == nil || !model.IsRetryable(err) {
			return err
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
