// Package config handles application configuration.
//
// Settings come from three layers, later ones winning: built-in defaults,
// a key = value config file in the data directory, and command-line flags.
// The initial UTXO pool is not a setting; it is read from a genesis file.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds runtime configuration for the settlement tool.
type Config struct {
	DataDir string `conf:"datadir"`

	// Settlement
	Settle SettleConfig

	// Wallet
	Wallet WalletConfig

	// Logging
	Log LogConfig
}

// MaxWorkers caps concurrent epoch settlement.
const MaxWorkers = 256

// SettleConfig holds settlement settings.
type SettleConfig struct {
	Persist bool   `conf:"settle.persist"` // save the pool after each settle run
	Workers int    `conf:"settle.workers"` // concurrent epochs for dry runs (0 = one per CPU)
	Ledger  string `conf:"settle.ledger"`  // namespace of the persisted pool
}

// WalletConfig holds keystore settings.
type WalletConfig struct {
	Default string `conf:"wallet.default"` // keystore entry used when --name is omitted
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-settle
//	macOS:   ~/Library/Application Support/KlingnetSettle
//	Windows: %APPDATA%\KlingnetSettle
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-settle"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetSettle")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetSettle")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetSettle")
	default:
		return filepath.Join(home, ".klingnet-settle")
	}
}

// LedgerDir returns the badger directory holding persisted pools.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.DataDir, "ledger")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet-settle.conf")
}
