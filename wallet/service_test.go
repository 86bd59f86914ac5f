package wallet

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/bundle"
	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/guard"
	"github.com/dmarkin/bundler-wallet/internal/launch"
	"github.com/dmarkin/bundler-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	balance   uint64
	sends     int
	sendErr   error
	lastTx    *solana.Transaction
	signature solana.Signature
}

func (f *fakeChain) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	var h solana.Hash
	copy(h[:], []byte("wallet-test-blockhash-0000000000"))
	return h, nil
}

func (f *fakeChain) GetBalanceLamports(context.Context, string) (uint64, error) {
	return f.balance, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.sends++
	f.lastTx = tx
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	var sig solana.Signature
	sig[0] = byte(f.sends)
	f.signature = sig
	return sig, nil
}

func testVault() *crypto.Vault {
	return crypto.NewVault(crypto.KDFParams{
		Argon2Time:    1,
		Argon2Memory:  1024,
		Argon2Threads: 1,
		PBKDF2Iters:   1000,
		ScryptN:       1 << 14,
		ScryptR:       8,
		ScryptP:       1,
		KeyLen:        32,
	})
}

func newTestService(t *testing.T, chain *fakeChain) *Service {
	t.Helper()
	vault := testVault()
	rateGuard := guard.New(guard.DefaultConfig())
	adapter := bundle.NewSystemProgramAdapter()
	builder := bundle.NewBuilder(adapter, adapter)
	submitter := bundle.NewSubmitter(nil, chain, bundle.SubmitterConfig{
		MinTipLamports: 100_000,
		MaxTipLamports: 5_000_000,
		MaxBundleSize:  5,
		InterSendDelay: time.Millisecond,
		RetryAttempts:  1,
		RetryDelay:     time.Millisecond,
	}, zerolog.Nop())
	orchestrator := launch.New(builder, submitter, chain, zerolog.Nop())
	coordinator := bundle.NewBuyCoordinator(vault, builder, submitter, chain, 4, zerolog.Nop())

	plan := launch.Plan{
		Enabled:       true,
		BuyPercentage: 0.1,
		SettleDelay:   time.Millisecond,
	}
	return NewService(vault, rateGuard, chain, builder, submitter, orchestrator, coordinator, 100, plan, zerolog.Nop())
}

func generateTestWallet(t *testing.T, s *Service, password []byte) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallet.cwt")
	address, err := s.Generate(path, password)
	require.NoError(t, err)
	return path, address
}

func TestGenerate(t *testing.T) {
	s := newTestService(t, &fakeChain{})
	password := []byte("correct horse battery staple")
	path, address := generateTestWallet(t, s, password)

	// Address in the file matches the returned one
	stored, err := crypto.ReadWalletAddress(path)
	require.NoError(t, err)
	assert.Equal(t, address, stored)

	// The stored key decrypts and matches the address
	err = crypto.WithWalletKey(s.vault, path, password, func(privateKey []byte) error {
		require.Len(t, privateKey, 64)
		assert.Equal(t, address, solana.PrivateKey(privateKey).PublicKey().String())
		return nil
	})
	require.NoError(t, err)
}

func TestGenerateRejectsWrongExtension(t *testing.T) {
	s := newTestService(t, &fakeChain{})
	_, err := s.Generate(filepath.Join(t.TempDir(), "wallet.json"), []byte("pw"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".cwt")
}

func TestGenerateRefusesExistingWallet(t *testing.T) {
	s := newTestService(t, &fakeChain{})
	password := []byte("pw")
	path, _ := generateTestWallet(t, s, password)

	_, err := s.Generate(path, password)
	require.Error(t, err)
	assert.True(t, IsFileExistsError(err))
}

func TestBalance(t *testing.T) {
	chain := &fakeChain{balance: 1_500_000_000}
	s := newTestService(t, chain)
	path, address := generateTestWallet(t, s, []byte("pw"))

	resp, err := s.Balance(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, address, resp.Address)
	assert.Equal(t, "1.500000000", resp.SOL)
}

func TestTransfer(t *testing.T) {
	chain := &fakeChain{balance: 2 * solana.LAMPORTS_PER_SOL}
	s := newTestService(t, chain)
	password := []byte("pw")
	path, _ := generateTestWallet(t, s, password)

	recipient := solana.NewWallet().PublicKey().String()
	resp, err := s.Transfer(context.Background(), path, password, &model.TransferRequest{
		ToAddress: recipient,
		Amount:    "0.5",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.TxID)
	assert.Equal(t, 1, chain.sends)
	require.NotNil(t, chain.lastTx)
	assert.NotEmpty(t, chain.lastTx.Signatures)
}

func TestTransferValidation(t *testing.T) {
	chain := &fakeChain{balance: 2 * solana.LAMPORTS_PER_SOL}
	s := newTestService(t, chain)
	password := []byte("pw")
	path, _ := generateTestWallet(t, s, password)
	recipient := solana.NewWallet().PublicKey().String()

	var valErr *model.ValidationError

	_, err := s.Transfer(context.Background(), path, password, &model.TransferRequest{ToAddress: "not-an-address", Amount: "1"})
	require.ErrorAs(t, err, &valErr)

	_, err = s.Transfer(context.Background(), path, password, &model.TransferRequest{ToAddress: recipient, Amount: "abc"})
	require.ErrorAs(t, err, &valErr)

	_, err = s.Transfer(context.Background(), path, password, &model.TransferRequest{ToAddress: recipient, Amount: "0"})
	require.ErrorAs(t, err, &valErr)

	assert.Equal(t, 0, chain.sends, "nothing broadcast on validation failures")
}

func TestTransferInsufficientBalance(t *testing.T) {
	chain := &fakeChain{balance: 10_000} // covers the fee and little else
	s := newTestService(t, chain)
	password := []byte("pw")
	path, _ := generateTestWallet(t, s, password)

	_, err := s.Transfer(context.Background(), path, password, &model.TransferRequest{
		ToAddress: solana.NewWallet().PublicKey().String(),
		Amount:    "1",
	})
	var valErr *model.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Message, "Max you can send")
	assert.Equal(t, 0, chain.sends)
}

func TestTransferWrongPassword(t *testing.T) {
	chain := &fakeChain{balance: 2 * solana.LAMPORTS_PER_SOL}
	s := newTestService(t, chain)
	path, _ := generateTestWallet(t, s, []byte("right"))

	_, err := s.Transfer(context.Background(), path, []byte("wrong"), &model.TransferRequest{
		ToAddress: solana.NewWallet().PublicKey().String(),
		Amount:    "0.5",
	})
	require.Error(t, err)
	assert.Equal(t, 0, chain.sends)
}

func TestTransferBlacklistedRecipient(t *testing.T) {
	chain := &fakeChain{balance: 2 * solana.LAMPORTS_PER_SOL}
	s := newTestService(t, chain)
	password := []byte("pw")
	path, _ := generateTestWallet(t, s, password)

	recipient := solana.NewWallet().PublicKey().String()
	s.guard.AddToBlacklist(recipient)

	_, err := s.Transfer(context.Background(), path, password, &model.TransferRequest{
		ToAddress: recipient,
		Amount:    "0.5",
	})
	var polErr *model.PolicyViolationError
	require.ErrorAs(t, err, &polErr)
	assert.Equal(t, 0, chain.sends)
}

func TestLaunchSnipe(t *testing.T) {
	chain := &fakeChain{balance: 10 * solana.LAMPORTS_PER_SOL}
	s := newTestService(t, chain)
	password := []byte("pw")
	path, _ := generateTestWallet(t, s, password)

	resp, err := s.LaunchSnipe(context.Background(), path, password, &model.LaunchSnipeRequest{
		Metadata: model.TokenMetadata{
			Name:                "Test Token",
			Symbol:              "TST",
			InitialLiquiditySOL: 2,
		},
		BuyPercentage: 0.1,
		MaxBuySOL:     1,
		UseBundle:     false, // no relay configured, sequential fallback
	})
	require.NoError(t, err)
	assert.Equal(t, string(launch.StateFallbackCompleted), resp.State)
	assert.NotEmpty(t, resp.MintAddress)
	assert.NotEmpty(t, resp.LaunchSignature)
	assert.NotEmpty(t, resp.SnipeSignature)
	assert.Equal(t, uint64(0.2*float64(solana.LAMPORTS_PER_SOL)), resp.BuyAmountLamports)
	assert.Equal(t, 2, chain.sends)
}

func TestLaunchSnipeKeepsConfiguredBuyCap(t *testing.T) {
	chain := &fakeChain{balance: 100 * solana.LAMPORTS_PER_SOL}
	s := newTestService(t, chain)
	s.launchPlan.MaxBuyLamports = solana.LAMPORTS_PER_SOL // 1 SOL cap from config
	password := []byte("pw")
	path, _ := generateTestWallet(t, s, password)

	// No MaxBuySOL in the request: the configured cap must still bind.
	resp, err := s.LaunchSnipe(context.Background(), path, password, &model.LaunchSnipeRequest{
		Metadata: model.TokenMetadata{
			Name:                "Test Token",
			Symbol:              "TST",
			InitialLiquiditySOL: 50,
		},
		BuyPercentage: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(solana.LAMPORTS_PER_SOL), resp.BuyAmountLamports)
}

func TestLaunchSnipePartialOutcomeSurfaced(t *testing.T) {
	chain := &fakeChain{balance: 10 * solana.LAMPORTS_PER_SOL}
	s := newTestService(t, chain)
	password := []byte("pw")
	path, _ := generateTestWallet(t, s, password)

	// First send (launch) works, second (snipe) fails.
	chainWrapped := &failSecondSend{fakeChain: chain}
	s.chain = chainWrapped
	s.orchestrator = launch.New(s.builder, bundle.NewSubmitter(nil, chainWrapped, bundle.SubmitterConfig{
		MinTipLamports: 100_000,
		MaxTipLamports: 5_000_000,
		MaxBundleSize:  5,
		RetryAttempts:  1,
	}, zerolog.Nop()), chainWrapped, zerolog.Nop())

	resp, err := s.LaunchSnipe(context.Background(), path, password, &model.LaunchSnipeRequest{
		Metadata: model.TokenMetadata{
			Name:                "Test Token",
			Symbol:              "TST",
			InitialLiquiditySOL: 2,
		},
		BuyPercentage: 0.1,
	})

	var partial *model.PartialFailureError
	require.ErrorAs(t, err, &partial)
	require.NotNil(t, resp, "partial outcome still carries the response")
	assert.Equal(t, string(launch.StatePartiallyConfirmed), resp.State)
	assert.NotEmpty(t, resp.LaunchSignature)
	assert.Empty(t, resp.SnipeSignature)
}

type failSecondSend struct {
	*fakeChain
}

func (f *failSecondSend) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if f.sends >= 1 {
		f.sends++
		return solana.Signature{}, &model.SubmissionError{Message: "blockhash expired"}
	}
	return f.fakeChain.SendTransaction(ctx, tx)
}

func TestLaunchSnipeValidation(t *testing.T) {
	s := newTestService(t, &fakeChain{})
	path, _ := generateTestWallet(t, s, []byte("pw"))
	var valErr *model.ValidationError

	_, err := s.LaunchSnipe(context.Background(), path, []byte("pw"), &model.LaunchSnipeRequest{
		Metadata: model.TokenMetadata{Symbol: "TST", InitialLiquiditySOL: 1},
	})
	require.ErrorAs(t, err, &valErr)

	_, err = s.LaunchSnipe(context.Background(), path, []byte("pw"), &model.LaunchSnipeRequest{
		Metadata: model.TokenMetadata{Name: "T", Symbol: "TST"},
	})
	require.ErrorAs(t, err, &valErr)

	_, err = s.LaunchSnipe(context.Background(), path, []byte("pw"), &model.LaunchSnipeRequest{
		Metadata:      model.TokenMetadata{Name: "T", Symbol: "TST", InitialLiquiditySOL: 1},
		BuyPercentage: 1.5,
	})
	require.ErrorAs(t, err, &valErr)
}

func TestBundleBuy(t *testing.T) {
	chain := &fakeChain{balance: 10 * solana.LAMPORTS_PER_SOL}
	s := newTestService(t, chain)
	password := []byte("pw")

	paths := make([]string, 3)
	for i := range paths {
		paths[i], _ = generateTestWallet(t, s, password)
	}

	resp, err := s.BundleBuy(context.Background(), password, &model.BundleBuyRequest{
		WalletPaths:     paths,
		TokenAddress:    solana.NewWallet().PublicKey().String(),
		AmountPerWallet: 1_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalWallets)
	assert.Equal(t, 3, resp.SuccessCount)
	assert.Equal(t, 0, resp.ErrorCount)
	assert.Len(t, resp.Signatures, 3)
	assert.Equal(t, uint64(3_000_000), resp.TotalAmount)
	assert.NotEmpty(t, resp.OperationID)
	assert.Equal(t, 3, chain.sends)
}

func TestBundleBuyBannedWalletRejectsOperation(t *testing.T) {
	chain := &fakeChain{balance: 10 * solana.LAMPORTS_PER_SOL}
	s := newTestService(t, chain)
	password := []byte("pw")

	path, address := generateTestWallet(t, s, password)
	s.guard.Ban(address, time.Hour)

	_, err := s.BundleBuy(context.Background(), password, &model.BundleBuyRequest{
		WalletPaths:     []string{path},
		TokenAddress:    solana.NewWallet().PublicKey().String(),
		AmountPerWallet: 1_000_000,
	})
	var polErr *model.PolicyViolationError
	require.ErrorAs(t, err, &polErr)
	assert.Equal(t, 0, chain.sends)
}

func TestBundleBuyValidation(t *testing.T) {
	s := newTestService(t, &fakeChain{})
	var valErr *model.ValidationError

	_, err := s.BundleBuy(context.Background(), []byte("pw"), &model.BundleBuyRequest{
		TokenAddress:    solana.NewWallet().PublicKey().String(),
		AmountPerWallet: 1,
	})
	require.ErrorAs(t, err, &valErr)

	_, err = s.BundleBuy(context.Background(), []byte("pw"), &model.BundleBuyRequest{
		WalletPaths:     []string{"x.cwt"},
		TokenAddress:    "bogus",
		AmountPerWallet: 1,
	})
	require.ErrorAs(t, err, &valErr)
}
