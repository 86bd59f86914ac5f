// Package wallet is the service layer: it ties encrypted key storage,
// policy enforcement, transaction building and submission together behind
// the operations the HTTP API exposes.
package wallet

import (
	"context"

	"github.com/dmarkin/bundler-wallet/internal/bundle"
	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/guard"
	"github.com/dmarkin/bundler-wallet/internal/launch"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// ChainClient is the node-facing surface the service needs. Satisfied by
// client.SolanaClient.
type ChainClient interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	GetBalanceLamports(ctx context.Context, address string) (uint64, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Service implements the wallet operations. Construct once at process
// start and share by reference.
type Service struct {
	vault        *crypto.Vault
	guard        *guard.RateGuard
	chain        ChainClient
	builder      *bundle.Builder
	submitter    *bundle.Submitter
	orchestrator *launch.Orchestrator
	coordinator  *bundle.BuyCoordinator
	log          zerolog.Logger

	slippageBps uint16      // default when a request does not carry its own
	launchPlan  launch.Plan // template; per-request fields are overridden
}

// NewService creates a Service.
func NewService(
	vault *crypto.Vault,
	rateGuard *guard.RateGuard,
	chain ChainClient,
	builder *bundle.Builder,
	submitter *bundle.Submitter,
	orchestrator *launch.Orchestrator,
	coordinator *bundle.BuyCoordinator,
	slippageBps uint16,
	launchPlan launch.Plan,
	log zerolog.Logger,
) *Service {
	return &Service{
		vault:        vault,
		guard:        rateGuard,
		chain:        chain,
		builder:      builder,
		submitter:    submitter,
		orchestrator: orchestrator,
		coordinator:  coordinator,
		slippageBps:  slippageBps,
		launchPlan:   launchPlan,
		log:          log,
	}
}
