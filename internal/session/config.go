package session

import (
	"time"

	"github.com/zappabad/moodmarket/internal/market"
	marketservice "github.com/zappabad/moodmarket/internal/market/service"
	newsservice "github.com/zappabad/moodmarket/internal/news/service"
)

// Config holds configuration for a trading session.
type Config struct {
	// Instruments is the catalog traded in the session.
	Instruments []market.Instrument `mapstructure:"instruments" yaml:"instruments"`
	// HorizonDays is the number of simulated trading days.
	HorizonDays int `mapstructure:"horizon_days" yaml:"horizon_days"`
	// StartingCash is the initial cash balance.
	StartingCash float64 `mapstructure:"starting_cash" yaml:"starting_cash"`
	// StartDate is the calendar date of day zero.
	StartDate time.Time `mapstructure:"start_date" yaml:"start_date"`
	// WinThreshold is the portfolio value that wins the game.
	WinThreshold float64 `mapstructure:"win_threshold" yaml:"win_threshold"`

	// TickInterval is the period of the price tick.
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	// RefreshInterval is the period of the P&L refresh.
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	// ShockInterval is the period of each shock check.
	ShockInterval time.Duration `mapstructure:"shock_interval" yaml:"shock_interval"`

	Market marketservice.Config `mapstructure:"market" yaml:"market"`
	News   newsservice.Config   `mapstructure:"news" yaml:"news"`
}

// DefaultStartDate is the calendar date of day zero.
var DefaultStartDate = time.Date(2015, time.November, 24, 0, 0, 0, 0, time.UTC)

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Instruments:     market.DefaultInstruments(),
		HorizonDays:     3652,
		StartingCash:    100_000,
		StartDate:       DefaultStartDate,
		WinThreshold:    1_000_000,
		TickInterval:    time.Second,
		RefreshInterval: 500 * time.Millisecond,
		ShockInterval:   time.Second,
		Market:          marketservice.DefaultConfig(),
		News:            newsservice.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.Instruments) == 0 {
		c.Instruments = def.Instruments
	}
	if c.HorizonDays == 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.StartingCash <= 0 {
		c.StartingCash = def.StartingCash
	}
	if c.StartDate.IsZero() {
		c.StartDate = def.StartDate
	}
	if c.WinThreshold <= 0 {
		c.WinThreshold = def.WinThreshold
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = def.RefreshInterval
	}
	if c.ShockInterval <= 0 {
		c.ShockInterval = def.ShockInterval
	}
	return c
}
