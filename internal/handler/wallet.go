package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/dmarkin/bundler-wallet/internal/config"
	"github.com/dmarkin/bundler-wallet/internal/guard"
	"github.com/dmarkin/bundler-wallet/internal/model"
	"github.com/dmarkin/bundler-wallet/wallet"

	"github.com/rs/zerolog"
)

// WalletHandler exposes the wallet service over HTTP.
type WalletHandler struct {
	service  *wallet.Service
	guard    *guard.RateGuard
	filePath string
	log      zerolog.Logger
}

// NewWalletHandler creates a WalletHandler. filePath is the primary wallet
// used by the single-wallet endpoints.
func NewWalletHandler(service *wallet.Service, rateGuard *guard.RateGuard, filePath string, log zerolog.Logger) (*WalletHandler, error) {
	if filePath == "" {
		return nil, errors.New("SOLANA_FILE_PATH not set")
	}
	return &WalletHandler{service: service, guard: rateGuard, filePath: filePath, log: log}, nil
}

// admit applies the per-client request rate limit. Client identity is the
// remote host, not the full address: the ephemeral port changes per
// connection and would give every connection a fresh window. Per-wallet
// transaction limits are enforced deeper in the service layer.
func (h *WalletHandler) admit(w http.ResponseWriter, r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if err := h.guard.CheckAndIncrement(host, guard.CategoryRequest); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

// writeError maps the error taxonomy onto HTTP statuses and writes the
// consistent JSON error body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := ""

	var valErr *model.ValidationError
	var rateErr *model.RateLimitExceededError
	var polErr *model.PolicyViolationError
	var netErr *model.NetworkError
	var subErr *model.SubmissionError
	switch {
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
		code = "validation"
	case wallet.IsFileExistsError(err):
		status = http.StatusConflict
		code = "conflict"
	case errors.As(err, &rateErr):
		status = http.StatusTooManyRequests
		code = "rate_limited"
	case errors.As(err, &polErr):
		status = http.StatusForbidden
		code = "policy"
	case errors.As(err, &netErr), errors.As(err, &subErr):
		status = http.StatusBadGateway
		code = "upstream"
	}

	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Generate handles POST /wallet/generate
// @Summary      Generate new wallet
// @Description  Generates a new Solana wallet and saves it to a .cwt file
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Success      200  {object}  model.GenerateResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/generate [post]
func (h *WalletHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	if !h.admit(w, r) {
		return
	}

	// Get password as []byte, use it, then zero it immediately
	passwordBytes, err := config.GetPasswordBytes()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	defer clear(passwordBytes) // Always clear password from memory

	address, err := h.service.Generate(h.filePath, passwordBytes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.GenerateResponse{
		Success: true,
		Message: "Wallet generated successfully",
		Address: address,
	})
}

// GetBalance handles GET /wallet/balance
// @Summary      Get wallet balance
// @Description  Gets the SOL balance of the primary wallet
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.BalanceResponse
// @Router       /wallet/balance [get]
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}
	if !h.admit(w, r) {
		return
	}

	balance, err := h.service.Balance(r.Context(), h.filePath)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

// Transfer handles POST /transfer
// @Summary      Send SOL
// @Description  Sends a SOL transaction to the specified address
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.TransferRequest  true  "Transfer data"
// @Success      200      {object}  model.TransferResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      429      {object}  model.ErrorResponse
// @Router       /transfer [post]
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	if !h.admit(w, r) {
		return
	}

	var req model.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	// Get password as []byte, use it, then zero it immediately
	passwordBytes, err := config.GetPasswordBytes()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	defer clear(passwordBytes) // Always clear password from memory

	resp, err := h.service.Transfer(r.Context(), h.filePath, passwordBytes, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// LaunchSnipe handles POST /launch-snipe
// @Summary      Launch a token and snipe it
// @Description  Creates a token and immediately buys it, atomically via the relay when enabled
// @Tags         bundler
// @Accept       json
// @Produce      json
// @Param        request  body      model.LaunchSnipeRequest  true  "Launch parameters"
// @Success      200      {object}  model.LaunchSnipeResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /launch-snipe [post]
func (h *WalletHandler) LaunchSnipe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	if !h.admit(w, r) {
		return
	}

	var req model.LaunchSnipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	passwordBytes, err := config.GetPasswordBytes()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	defer clear(passwordBytes)

	resp, err := h.service.LaunchSnipe(r.Context(), h.filePath, passwordBytes, &req)
	if err != nil && resp == nil {
		writeError(w, err)
		return
	}
	if err != nil {
		// Partial outcome: the launch leg landed. The body carries the
		// state and what did land; this is not an internal error.
		h.log.Warn().Err(err).Str("state", resp.State).Msg("launch-snipe completed partially")
	}

	writeJSON(w, http.StatusOK, resp)
}

// BundleBuy handles POST /bundle/buy
// @Summary      Buy a token from multiple wallets
// @Description  Buys the same asset from every listed wallet, as one atomic bundle or a throttled sequence
// @Tags         bundler
// @Accept       json
// @Produce      json
// @Param        request  body      model.BundleBuyRequest  true  "Buy parameters"
// @Success      200      {object}  model.BundleBuyResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Router       /bundle/buy [post]
func (h *WalletHandler) BundleBuy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}
	if !h.admit(w, r) {
		return
	}

	var req model.BundleBuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	passwordBytes, err := config.GetPasswordBytes()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	defer clear(passwordBytes)

	resp, err := h.service.BundleBuy(r.Context(), passwordBytes, &req)
	if err != nil && resp == nil {
		writeError(w, err)
		return
	}

	// Per-wallet failures are reported in the body, not as an HTTP error.
	writeJSON(w, http.StatusOK, resp)
}
