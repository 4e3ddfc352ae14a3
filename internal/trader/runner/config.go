package runner

import "time"

// Config holds configuration for the signal runner.
type Config struct {
	// PollInterval is how often the signal source is read.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// Cooldown is the minimum time between two trades.
	Cooldown time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	// ConfidenceThreshold is the lowest confidence acted on.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	// SharesPerTrade is the order size of one signal.
	SharesPerTrade int64 `mapstructure:"shares_per_trade" yaml:"shares_per_trade"`
	// EventBuffer is the size of the trader events channel. Events that
	// do not fit are dropped and counted.
	EventBuffer int `mapstructure:"event_buffer" yaml:"event_buffer"`
	// Enabled starts the runner acting on signals.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:        100 * time.Millisecond,
		Cooldown:            2 * time.Second,
		ConfidenceThreshold: 0.65,
		SharesPerTrade:      1,
		EventBuffer:         256,
		Enabled:             true,
	}
}
