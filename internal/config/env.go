package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Note: the wallet password is prompted at runtime and stored in memory -
// use GetPasswordBytes()
type Config struct {
	Port           string `envconfig:"PORT" default:"8080"`
	SolanaFilePath string `envconfig:"SOLANA_FILE_PATH" required:"true"`
	SolanaRPCURL   string `envconfig:"SOLANA_RPC_URL" default:"https://api.mainnet-beta.solana.com"`

	// Relay bundle submission
	RelayURL       string `envconfig:"RELAY_URL" default:"https://mainnet.block-engine.jito.wtf/api/v1"`
	RelayEnabled   bool   `envconfig:"RELAY_ENABLED" default:"true"`
	MinTipLamports uint64 `envconfig:"MIN_TIP_LAMPORTS" default:"100000"`
	MaxTipLamports uint64 `envconfig:"MAX_TIP_LAMPORTS" default:"5000000"`
	MaxBundleSize  int    `envconfig:"MAX_BUNDLE_SIZE" default:"5"`

	// Submission timing and retry
	InterSendDelayMS int `envconfig:"INTER_SEND_DELAY_MS" default:"100"`
	SettleDelayMS    int `envconfig:"SETTLE_DELAY_MS" default:"50"`
	RetryAttempts    int `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelayMS     int `envconfig:"RETRY_DELAY_MS" default:"250"`
	RPCTimeoutMS     int `envconfig:"RPC_TIMEOUT_MS" default:"12000"`

	// Launch+snipe
	LaunchSnipeEnabled bool    `envconfig:"LAUNCH_SNIPE_ENABLED" default:"true"`
	BuyPercentage      float64 `envconfig:"BUY_PERCENTAGE" default:"0.1"`
	MaxBuySOL          float64 `envconfig:"MAX_BUY_SOL" default:"1.0"`
	SlippageBps        uint16  `envconfig:"SLIPPAGE_BPS" default:"100"`
	JitterMinMS        int     `envconfig:"JITTER_MIN_MS" default:"100"`
	JitterMaxMS        int     `envconfig:"JITTER_MAX_MS" default:"300"`

	// Rate limiting and policy
	MaxRequestsPerMinute   int    `envconfig:"MAX_REQUESTS_PER_MINUTE" default:"60"`
	MaxTransactionsPerHour int    `envconfig:"MAX_TRANSACTIONS_PER_HOUR" default:"100"`
	DailyVolumeLimit       uint64 `envconfig:"DAILY_VOLUME_LIMIT_LAMPORTS" default:"0"`
	WhitelistEnabled       bool   `envconfig:"WHITELIST_ENABLED" default:"false"`

	// Bundle buy fan-out
	MaxBuyConcurrency int `envconfig:"MAX_BUY_CONCURRENCY" default:"4"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	cfg = &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.MinTipLamports > cfg.MaxTipLamports {
		return errors.New("MIN_TIP_LAMPORTS must not exceed MAX_TIP_LAMPORTS")
	}
	if cfg.JitterMinMS > cfg.JitterMaxMS {
		return errors.New("JITTER_MIN_MS must not exceed JITTER_MAX_MS")
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

var passwordBytes []byte

// PromptForPassword obtains the wallet password and stores it in memory.
// WALLET_PASSWORD in the environment takes precedence (headless runs);
// otherwise the password is read from the terminal without echoing.
// Call this at startup before the server begins handling requests.
func PromptForPassword() error {
	if env := os.Getenv("WALLET_PASSWORD"); env != "" {
		passwordBytes = []byte(env)
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, "Enter wallet password: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("password cannot be empty")
	}

	passwordBytes = make([]byte, len(raw))
	copy(passwordBytes, raw)
	clear(raw)
	return nil
}

// GetPasswordBytes returns a copy of the password stored in memory (from
// PromptForPassword). Caller must zero the returned slice after use.
func GetPasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}
