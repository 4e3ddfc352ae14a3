package service

import newsview "github.com/zappabad/moodmarket/internal/news/view"

// Config holds configuration for the news service.
type Config struct {
	// Retention is the number of events kept in the log.
	Retention int `mapstructure:"retention" yaml:"retention"`
	// ExternalEventBuffer is the size of the subscriber channel.
	ExternalEventBuffer int `mapstructure:"external_event_buffer" yaml:"external_event_buffer"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Retention:           newsview.DefaultCapacity,
		ExternalEventBuffer: 64,
	}
}
