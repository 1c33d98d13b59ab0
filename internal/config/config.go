package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultNetwork  = "flow-testnet"
	defaultContract = "0xe9420DC12546ACB7ae36FeAb7739dF5a2adC2180"
	defaultWorkers  = 4
	defaultInterval = 10

	configFile  = "config.json"
	walletsFile = "wallets.json"
	stateFile   = "state.json"
)

// Environment overrides, applied after config.json is read.
const (
	EnvConfigDir = "W3MARKET_CONFIG_DIR"
	EnvRPCURL    = "W3MARKET_RPC_URL"
	EnvContract  = "W3MARKET_CONTRACT"
	EnvNetwork   = "W3MARKET_NETWORK"
	EnvWallet    = "W3MARKET_WALLET"
	EnvGasLimit  = "W3MARKET_GAS_LIMIT"
)

// LoadDotEnv reads a .env file from the working directory into the process
// environment. A missing file is not an error; existing variables win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads config from dir (or creates defaults). dir defaults to ~/.w3market.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3market")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.configDir = dir
	cfg.applyEnv()
	cfg.fillZeroes()
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the JSON file holding wallet metadata.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// StatePath is the key/value file holding purchase history and theme.
func (c *Config) StatePath() string {
	return filepath.Join(c.configDir, stateFile)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Network:         defaultNetwork,
		ContractAddress: defaultContract,
		GasLimit:        DefaultGasLimit,
		FetchWorkers:    defaultWorkers,
		WatchInterval:   defaultInterval,
		configDir:       dir,
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvNetwork); v != "" {
		c.Network = v
	}
	if v := os.Getenv(EnvRPCURL); v != "" {
		c.RPCURL = v
	}
	if v := os.Getenv(EnvContract); v != "" {
		c.ContractAddress = v
	}
	if v := os.Getenv(EnvWallet); v != "" {
		c.DefaultWallet = v
	}
	if v := os.Getenv(EnvGasLimit); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.GasLimit = n
		}
	}
}

// fillZeroes restores defaults for fields a hand-edited file left empty.
func (c *Config) fillZeroes() {
	if c.Network == "" {
		c.Network = defaultNetwork
	}
	if c.ContractAddress == "" {
		c.ContractAddress = defaultContract
	}
	if c.GasLimit == 0 {
		c.GasLimit = DefaultGasLimit
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = defaultWorkers
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = defaultInterval
	}
}
