package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmarkin/bundler-wallet/internal/api"
	"github.com/dmarkin/bundler-wallet/internal/bundle"
	"github.com/dmarkin/bundler-wallet/internal/config"
	"github.com/dmarkin/bundler-wallet/internal/crypto"
	"github.com/dmarkin/bundler-wallet/internal/guard"
	"github.com/dmarkin/bundler-wallet/internal/handler"
	"github.com/dmarkin/bundler-wallet/internal/launch"
	"github.com/dmarkin/bundler-wallet/internal/model"
	"github.com/dmarkin/bundler-wallet/wallet"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	balance uint64
	sends   int
}

func (f *fakeChain) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	var h solana.Hash
	copy(h[:], []byte("handler-test-blockhash-000000000"))
	return h, nil
}

func (f *fakeChain) GetBalanceLamports(context.Context, string) (uint64, error) {
	return f.balance, nil
}

func (f *fakeChain) SendTransaction(context.Context, *solana.Transaction) (solana.Signature, error) {
	f.sends++
	var sig solana.Signature
	sig[0] = byte(f.sends)
	return sig, nil
}

func newTestServer(t *testing.T, chain *fakeChain, guardCfg guard.Config) (http.Handler, string) {
	t.Helper()
	t.Setenv("WALLET_PASSWORD", "handler test password")
	require.NoError(t, config.PromptForPassword())

	vault := crypto.NewVault(crypto.KDFParams{
		Argon2Time:    1,
		Argon2Memory:  1024,
		Argon2Threads: 1,
		PBKDF2Iters:   1000,
		ScryptN:       1 << 14,
		ScryptR:       8,
		ScryptP:       1,
		KeyLen:        32,
	})
	rateGuard := guard.New(guardCfg)
	adapter := bundle.NewSystemProgramAdapter()
	builder := bundle.NewBuilder(adapter, adapter)
	submitter := bundle.NewSubmitter(nil, chain, bundle.SubmitterConfig{
		MinTipLamports: 100_000,
		MaxTipLamports: 5_000_000,
		MaxBundleSize:  5,
		InterSendDelay: time.Millisecond,
		RetryAttempts:  1,
	}, zerolog.Nop())
	orchestrator := launch.New(builder, submitter, chain, zerolog.Nop())
	coordinator := bundle.NewBuyCoordinator(vault, builder, submitter, chain, 4, zerolog.Nop())

	plan := launch.Plan{Enabled: true, BuyPercentage: 0.1, SettleDelay: time.Millisecond}
	service := wallet.NewService(vault, rateGuard, chain, builder, submitter,
		orchestrator, coordinator, 100, plan, zerolog.Nop())

	filePath := filepath.Join(t.TempDir(), "wallet.cwt")
	h, err := handler.NewWalletHandler(service, rateGuard, filePath, zerolog.Nop())
	require.NoError(t, err)
	return api.SetupRouter(h), filePath
}

func defaultGuardConfig() guard.Config {
	return guard.DefaultConfig()
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGenerateEndpoint(t *testing.T) {
	router, _ := newTestServer(t, &fakeChain{}, defaultGuardConfig())

	rec := postJSON(t, router, "/wallet/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Address)

	// Second generate hits the non-empty file
	rec = postJSON(t, router, "/wallet/generate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.NotEmpty(t, errResp.Error)
}

func TestGenerateMethodNotAllowed(t *testing.T) {
	router, _ := newTestServer(t, &fakeChain{}, defaultGuardConfig())

	req := httptest.NewRequest(http.MethodGet, "/wallet/generate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBalanceEndpoint(t *testing.T) {
	chain := &fakeChain{balance: 2_500_000_000}
	router, _ := newTestServer(t, chain, defaultGuardConfig())

	rec := postJSON(t, router, "/wallet/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	recBal := httptest.NewRecorder()
	router.ServeHTTP(recBal, req)
	require.Equal(t, http.StatusOK, recBal.Code, recBal.Body.String())

	var resp model.BalanceResponse
	require.NoError(t, json.Unmarshal(recBal.Body.Bytes(), &resp))
	assert.Equal(t, "2.500000000", resp.SOL)
	assert.NotEmpty(t, resp.Address)
}

func TestTransferEndpoint(t *testing.T) {
	chain := &fakeChain{balance: 5 * solana.LAMPORTS_PER_SOL}
	router, _ := newTestServer(t, chain, defaultGuardConfig())

	rec := postJSON(t, router, "/wallet/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/transfer", model.TransferRequest{
		ToAddress: solana.NewWallet().PublicKey().String(),
		Amount:    "0.25",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.TransferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TxID)
	assert.Equal(t, 1, chain.sends)
}

func TestTransferEndpointValidation(t *testing.T) {
	router, _ := newTestServer(t, &fakeChain{balance: solana.LAMPORTS_PER_SOL}, defaultGuardConfig())

	rec := postJSON(t, router, "/wallet/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/transfer", model.TransferRequest{ToAddress: "bogus", Amount: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "validation", errResp.Code)
}

func TestRequestRateLimit(t *testing.T) {
	cfg := guard.Config{
		Limits: map[guard.Category]guard.Limit{
			guard.CategoryRequest:     {Max: 2, Window: time.Minute},
			guard.CategoryTransaction: {Max: 100, Window: time.Hour},
		},
	}
	chain := &fakeChain{balance: solana.LAMPORTS_PER_SOL}
	router, _ := newTestServer(t, chain, cfg)

	// Each request arrives on a fresh connection, so the ephemeral port
	// differs every time. The limit must still bind on the host.
	req := func(port string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
		r.RemoteAddr = "10.0.0.1:" + port
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)
		return rec
	}

	// The first two requests consume the window (they fail on the missing
	// wallet file, but they were admitted).
	assert.NotEqual(t, http.StatusTooManyRequests, req("50001").Code)
	assert.NotEqual(t, http.StatusTooManyRequests, req("50002").Code)

	rec := req("50003")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "rate_limited", errResp.Code)

	// A different client is unaffected
	other := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
	other.RemoteAddr = "10.0.0.2:9999"
	recOther := httptest.NewRecorder()
	router.ServeHTTP(recOther, other)
	assert.NotEqual(t, http.StatusTooManyRequests, recOther.Code)
}

func TestBundleBuyEndpoint(t *testing.T) {
	chain := &fakeChain{balance: 5 * solana.LAMPORTS_PER_SOL}
	router, filePath := newTestServer(t, chain, defaultGuardConfig())

	rec := postJSON(t, router, "/wallet/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/bundle/buy", model.BundleBuyRequest{
		WalletPaths:     []string{filePath},
		TokenAddress:    solana.NewWallet().PublicKey().String(),
		AmountPerWallet: 1_000_000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.BundleBuyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalWallets)
	assert.Equal(t, 1, resp.SuccessCount)
	assert.Len(t, resp.Signatures, 1)
}

func TestLaunchSnipeEndpoint(t *testing.T) {
	chain := &fakeChain{balance: 10 * solana.LAMPORTS_PER_SOL}
	router, _ := newTestServer(t, chain, defaultGuardConfig())

	rec := postJSON(t, router, "/wallet/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/launch-snipe", model.LaunchSnipeRequest{
		Metadata: model.TokenMetadata{
			Name:                "Test Token",
			Symbol:              "TST",
			InitialLiquiditySOL: 1,
		},
		BuyPercentage: 0.1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.LaunchSnipeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(launch.StateFallbackCompleted), resp.State)
	assert.NotEmpty(t, resp.MintAddress)
	assert.NotEmpty(t, resp.LaunchSignature)
	assert.NotEmpty(t, resp.SnipeSignature)
}
