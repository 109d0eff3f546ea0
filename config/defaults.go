package config

// DefaultLedger is the namespace used when settle.ledger is unset.
const DefaultLedger = "main"

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Settle: SettleConfig{
			Persist: true,
			Workers: 0,
			Ledger:  DefaultLedger,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
