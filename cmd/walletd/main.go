// walletd is the wallet backend server. Configuration comes from the
// environment (a .env file is honored); the wallet password is prompted
// once at startup and held only in memory.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/api"
	"github.com/dmarkin/bundler-wallet/internal/bundle"
	"github.com/dmarkin/bundler-wallet/internal/client"
	"github.com/dmarkin/bundler-wallet/internal/config"
	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/guard"
	"github.com/dmarkin/bundler-wallet/internal/handler"
	"github.com/dmarkin/bundler-wallet/internal/launch"
	"github.com/dmarkin/bundler-wallet/wallet"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// @title        Bundler Wallet API
// @version      1.0
// @description  Self-custody Solana wallet backend with MEV-aware bundle submission
// @BasePath     /
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// .env is optional; real environment variables win either way.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	if err := config.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()

	if err := config.PromptForPassword(); err != nil {
		log.Fatal().Err(err).Msg("failed to read wallet password")
	}

	vault := crypto.NewVault(crypto.DefaultKDFParams())

	rateGuard := guard.New(guard.Config{
		Limits: map[guard.Category]guard.Limit{
			guard.CategoryRequest:     {Max: cfg.MaxRequestsPerMinute, Window: time.Minute},
			guard.CategoryTransaction: {Max: cfg.MaxTransactionsPerHour, Window: time.Hour},
		},
		DailyVolumeLimit: cfg.DailyVolumeLimit,
		WhitelistEnabled: cfg.WhitelistEnabled,
		BanDuration:      time.Hour,
	})

	rpcTimeout := time.Duration(cfg.RPCTimeoutMS) * time.Millisecond
	chain := client.NewSolanaClient(cfg.SolanaRPCURL, rpcTimeout)

	// Development stand-in; production deployments inject the real launch
	// and swap program adapters here.
	adapter := bundle.NewSystemProgramAdapter()
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	rent, err := chain.GetMinimumBalanceForRentExemption(ctx, adapter.MintAccountSpace)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("rpc", chain.URL()).Msg("rent-exempt minimum unavailable, launches will not enforce the floor")
	} else {
		adapter.RentExemptMinimum = rent
	}
	builder := bundle.NewBuilder(adapter, adapter)

	var relay bundle.Relay
	if cfg.RelayEnabled {
		relay = bundle.NewRelayClient(cfg.RelayURL, rpcTimeout)
	}
	submitter := bundle.NewSubmitter(relay, chain, bundle.SubmitterConfig{
		MinTipLamports: cfg.MinTipLamports,
		MaxTipLamports: cfg.MaxTipLamports,
		MaxBundleSize:  cfg.MaxBundleSize,
		InterSendDelay: time.Duration(cfg.InterSendDelayMS) * time.Millisecond,
		RetryAttempts:  cfg.RetryAttempts,
		RetryDelay:     time.Duration(cfg.RetryDelayMS) * time.Millisecond,
	}, log)

	orchestrator := launch.New(builder, submitter, chain, log)
	coordinator := bundle.NewBuyCoordinator(vault, builder, submitter, chain, cfg.MaxBuyConcurrency, log)

	launchPlan := launch.Plan{
		Enabled:         cfg.LaunchSnipeEnabled,
		BuyPercentage:   cfg.BuyPercentage,
		MaxBuyLamports:  uint64(cfg.MaxBuySOL * float64(solana.LAMPORTS_PER_SOL)),
		SlippageBps:     cfg.SlippageBps,
		RandomizeTiming: true,
		JitterMin:       time.Duration(cfg.JitterMinMS) * time.Millisecond,
		JitterMax:       time.Duration(cfg.JitterMaxMS) * time.Millisecond,
		SettleDelay:     time.Duration(cfg.SettleDelayMS) * time.Millisecond,
	}

	service := wallet.NewService(vault, rateGuard, chain, builder, submitter,
		orchestrator, coordinator, cfg.SlippageBps, launchPlan, log)

	walletHandler, err := handler.NewWalletHandler(service, rateGuard, cfg.SolanaFilePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create handler")
	}

	// Housekeeping: expired bans and stale counters do not need to linger.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rateGuard.CleanupExpired()
		}
	}()

	router := api.SetupRouter(walletHandler)

	addr := ":" + cfg.Port
	log.Info().
		Str("addr", addr).
		Bool("relay_enabled", cfg.RelayEnabled).
		Bool("launch_snipe_enabled", cfg.LaunchSnipeEnabled).
		Msg("walletd listening")
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
