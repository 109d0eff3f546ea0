package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	if cfg.Settle.Workers < 0 || cfg.Settle.Workers > MaxWorkers {
		return fmt.Errorf("settle.workers must be in range [0, %d]", MaxWorkers)
	}

	if cfg.Settle.Ledger == "" {
		cfg.Settle.Ledger = DefaultLedger
	}
	if err := validateLedgerName(cfg.Settle.Ledger); err != nil {
		return fmt.Errorf("settle.ledger: %w", err)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be trace, debug, info, warn or error")
	}
	return nil
}

// validateLedgerName restricts namespaces to characters that cannot
// collide with the key separator.
func validateLedgerName(name string) error {
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("invalid character %q at position %d", r, i)
		}
	}
	return nil
}
