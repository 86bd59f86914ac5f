package api

import (
	"net/http"

	"github.com/dmarkin/bundler-wallet/internal/handler"

	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter sets up router with handlers
func SetupRouter(walletHandler *handler.WalletHandler) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Wallet endpoints
	mux.HandleFunc("/wallet/generate", walletHandler.Generate)
	mux.HandleFunc("/wallet/balance", walletHandler.GetBalance)
	mux.HandleFunc("/transfer", walletHandler.Transfer)

	// Bundler endpoints
	mux.HandleFunc("/launch-snipe", walletHandler.LaunchSnipe)
	mux.HandleFunc("/bundle/buy", walletHandler.BundleBuy)

	return mux
}
