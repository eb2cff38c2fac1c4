package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment. The three chain variables mirror what
// the deployment provides; missing any of them is a fatal startup condition
// unless the fake ledger is explicitly enabled for local development.
type Config struct {
	HTTPPort int    `env:"API_HTTP_PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	RPCURL           string `env:"BASE_RPC_URL"`
	WalletPrivateKey string `env:"WALLET_PRIVATE_KEY"`
	ContractAddress  string `env:"DEPLOYED_CONTRACT_ADDRESS"`
	FakeLedger       bool   `env:"LEDGER_FAKE" envDefault:"false"`

	DatabaseURL string `env:"DATABASE_URL"`

	ConfirmTimeout    time.Duration `env:"LEDGER_CONFIRM_TIMEOUT" envDefault:"90s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"10m"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load parses and validates the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.FakeLedger {
		return nil
	}
	if c.RPCURL == "" {
		return fmt.Errorf("BASE_RPC_URL is required")
	}
	if c.WalletPrivateKey == "" {
		return fmt.Errorf("WALLET_PRIVATE_KEY is required")
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("DEPLOYED_CONTRACT_ADDRESS is required")
	}
	return nil
}
