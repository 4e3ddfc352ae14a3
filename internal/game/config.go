package game

import (
	"github.com/zappabad/moodmarket/internal/bridge"
	"github.com/zappabad/moodmarket/internal/logging"
	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader/runner"
)

// MoodConfig configures the synthetic signal producer.
type MoodConfig struct {
	// Enabled polls a random mood source in place of a camera.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Neutral is the chance a reading produces no signal.
	Neutral float64 `mapstructure:"neutral" yaml:"neutral"`
}

// Config holds configuration for the game.
type Config struct {
	// Seed seeds every random draw. Zero picks a seed from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
	// Listen is the address serving /ws and /metrics. Empty disables it.
	Listen string `mapstructure:"listen" yaml:"listen"`

	Session session.Config `mapstructure:"session" yaml:"session"`
	Runner  runner.Config  `mapstructure:"runner" yaml:"runner"`
	Mood    MoodConfig     `mapstructure:"mood" yaml:"mood"`
	Bridge  bridge.Config  `mapstructure:"bridge" yaml:"bridge"`
	Logging logging.Config `mapstructure:"logging" yaml:"logging"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Session: session.DefaultConfig(),
		Runner:  runner.DefaultConfig(),
		Mood: MoodConfig{
			Enabled: false,
			Neutral: 0.5,
		},
		Bridge:  bridge.DefaultConfig(),
		Logging: logging.DefaultConfig(),
	}
}
