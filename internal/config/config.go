package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Square struct {
		APIBase             string `yaml:"api_base"`
		AccessToken         string `yaml:"access_token"`
		LocationID          string `yaml:"location_id"`
		WebhookSignatureKey string `yaml:"webhook_signature_key"`
		NotificationURL     string `yaml:"notification_url"`
	} `yaml:"square"`
	Checkout struct {
		BaseURL  string `yaml:"base_url"`
		Currency string `yaml:"currency"`
	} `yaml:"checkout"`
	Prex struct {
		APIBase      string `yaml:"api_base"`
		APIKey       string `yaml:"api_key"`
		PolicyID     string `yaml:"policy_id"`
		ChainID      int64  `yaml:"chain_id"`
		TokenAddress string `yaml:"token_address"`
		PrivateKey   string `yaml:"private_key"`
	} `yaml:"prex"`
	Smaregi struct {
		APIBase      string `yaml:"api_base"`
		AuthURL      string `yaml:"auth_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		ContractID   string `yaml:"contract_id"`
		StoreID      string `yaml:"store_id"`
		TerminalID   string `yaml:"terminal_id"`
	} `yaml:"smaregi"`
	Worker struct {
		IntervalSeconds int64 `yaml:"interval_seconds"`
		MaxAttempts     int   `yaml:"max_attempts"`
		BackoffSeconds  int64 `yaml:"backoff_seconds"`
		BatchSize       int   `yaml:"batch_size"`
	} `yaml:"worker"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	if cfg.Square.AccessToken == "" {
		return nil, errors.New("square.access_token is required")
	}
	if cfg.Square.WebhookSignatureKey == "" || cfg.Square.NotificationURL == "" {
		return nil, errors.New("square webhook config is incomplete")
	}
	if cfg.Prex.TokenAddress == "" || cfg.Prex.ChainID == 0 {
		return nil, errors.New("prex config is incomplete")
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("SQUARE_API_BASE"); v != "" {
		cfg.Square.APIBase = v
	}
	if v := os.Getenv("SQUARE_ACCESS_TOKEN"); v != "" {
		cfg.Square.AccessToken = v
	}
	if v := os.Getenv("SQUARE_LOCATION_ID"); v != "" {
		cfg.Square.LocationID = v
	}
	if v := os.Getenv("SQUARE_WEBHOOK_SIGNATURE_KEY"); v != "" {
		cfg.Square.WebhookSignatureKey = v
	}
	if v := os.Getenv("NOTIFICATION_URL"); v != "" {
		cfg.Square.NotificationURL = v
	}
	if v := os.Getenv("CHECKOUT_BASE_URL"); v != "" {
		cfg.Checkout.BaseURL = v
	}
	if v := os.Getenv("CHECKOUT_CURRENCY"); v != "" {
		cfg.Checkout.Currency = v
	}
	if v := os.Getenv("PREX_API_BASE"); v != "" {
		cfg.Prex.APIBase = v
	}
	if v := os.Getenv("PREX_API_KEY"); v != "" {
		cfg.Prex.APIKey = v
	}
	if v := os.Getenv("PREX_POLICY_ID"); v != "" {
		cfg.Prex.PolicyID = v
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		cfg.Prex.ChainID = atoi64Or(cfg.Prex.ChainID, v)
	}
	if v := os.Getenv("TOKEN_ADDRESS"); v != "" {
		cfg.Prex.TokenAddress = v
	}
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		cfg.Prex.PrivateKey = v
	}
	if v := os.Getenv("SMAREGI_API_BASE"); v != "" {
		cfg.Smaregi.APIBase = v
	}
	if v := os.Getenv("SMAREGI_AUTH_URL"); v != "" {
		cfg.Smaregi.AuthURL = v
	}
	if v := os.Getenv("SMAREGI_CLIENT_ID"); v != "" {
		cfg.Smaregi.ClientID = v
	}
	if v := os.Getenv("SMAREGI_CLIENT_SECRET"); v != "" {
		cfg.Smaregi.ClientSecret = v
	}
	if v := os.Getenv("SMAREGI_CONTRACT_ID"); v != "" {
		cfg.Smaregi.ContractID = v
	}
	if v := os.Getenv("SMAREGI_STORE_ID"); v != "" {
		cfg.Smaregi.StoreID = v
	}
	if v := os.Getenv("SMAREGI_TERMINAL_ID"); v != "" {
		cfg.Smaregi.TerminalID = v
	}
	if v := os.Getenv("WORKER_INTERVAL_SECONDS"); v != "" {
		cfg.Worker.IntervalSeconds = atoi64Or(cfg.Worker.IntervalSeconds, v)
	}
	if v := os.Getenv("WORKER_MAX_ATTEMPTS"); v != "" {
		cfg.Worker.MaxAttempts = atoiOr(cfg.Worker.MaxAttempts, v)
	}
	if v := os.Getenv("WORKER_BACKOFF_SECONDS"); v != "" {
		cfg.Worker.BackoffSeconds = atoi64Or(cfg.Worker.BackoffSeconds, v)
	}
	if v := os.Getenv("WORKER_BATCH_SIZE"); v != "" {
		cfg.Worker.BatchSize = atoiOr(cfg.Worker.BatchSize, v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Square.APIBase == "" {
		cfg.Square.APIBase = "https://connect.squareupsandbox.com"
	}
	if cfg.Checkout.Currency == "" {
		cfg.Checkout.Currency = "JPY"
	}
	if cfg.Smaregi.AuthURL == "" {
		cfg.Smaregi.AuthURL = "https://id.smaregi.jp/app/token"
	}
	if cfg.Smaregi.StoreID == "" {
		cfg.Smaregi.StoreID = "1"
	}
	if cfg.Smaregi.TerminalID == "" {
		cfg.Smaregi.TerminalID = "1"
	}
	if cfg.Worker.IntervalSeconds <= 0 {
		cfg.Worker.IntervalSeconds = 20
	}
	if cfg.Worker.MaxAttempts <= 0 {
		cfg.Worker.MaxAttempts = 5
	}
	if cfg.Worker.BackoffSeconds <= 0 {
		cfg.Worker.BackoffSeconds = 30
	}
	if cfg.Worker.BatchSize <= 0 {
		cfg.Worker.BatchSize = 20
	}
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
