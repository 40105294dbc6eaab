// Package config loads and persists the CLI's operator configuration. File
// values come from ~/.ckb-pop/config.yaml; CKB_POP_* environment variables
// override the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default endpoints for the public CKB networks.
const (
	DefaultTestnetRPC = "https://testnet.ckb.dev/rpc"
	DefaultMainnetRPC = "https://mainnet.ckb.dev/rpc"
)

const (
	configDirName  = ".ckb-pop"
	configFileName = "config.yaml"
)

// Config is the persisted operator configuration.
type Config struct {
	// Network selects testnet or mainnet.
	Network string `yaml:"network" env:"NETWORK"`
	// TestnetRPC and MainnetRPC are the node endpoints per network.
	TestnetRPC string `yaml:"testnet_rpc" env:"TESTNET_RPC"`
	MainnetRPC string `yaml:"mainnet_rpc" env:"MAINNET_RPC"`
	// RegistryURL is the event registry service endpoint.
	RegistryURL string `yaml:"registry_url" env:"REGISTRY_URL"`

	// SignerMethod selects the signing backend; Address is the CKB address
	// it controls.
	SignerMethod string `yaml:"signer_method" env:"SIGNER_METHOD"`
	Address      string `yaml:"address" env:"ADDRESS"`
	// RelayURL is required by the walletconnect backend.
	RelayURL string `yaml:"relay_url" env:"RELAY_URL"`

	// ApprovalBasePort and ApprovalPortSpan control the local approval
	// listener's port range.
	ApprovalBasePort int `yaml:"approval_base_port" env:"APPROVAL_BASE_PORT"`
	ApprovalPortSpan int `yaml:"approval_port_span" env:"APPROVAL_PORT_SPAN"`
}

// Defaults returns the configuration used before any file or env input.
func Defaults() Config {
	return Config{
		Network:      "testnet",
		TestnetRPC:   DefaultTestnetRPC,
		MainnetRPC:   DefaultMainnetRPC,
		SignerMethod: "browser",
	}
}

// Path returns the config file location, honoring CKB_POP_CONFIG.
func Path() (string, error) {
	if p := os.Getenv("CKB_POP_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// Load reads the config file if present, then applies environment
// overrides. A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	cfg := Defaults()

	path, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// first run, defaults only
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CKB_POP_"}); err != nil {
		return nil, fmt.Errorf("parse environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config file, creating its directory on first use.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate rejects values no command could use.
func (c *Config) Validate() error {
	switch c.Network {
	case "testnet", "mainnet":
	default:
		return fmt.Errorf("unknown network %q (want testnet or mainnet)", c.Network)
	}
	return nil
}

// RPCURL returns the node endpoint for the configured network.
func (c *Config) RPCURL() string {
	if c.Network == "mainnet" {
		return c.MainnetRPC
	}
	return c.TestnetRPC
}
