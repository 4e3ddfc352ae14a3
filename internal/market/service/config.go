package service

import "github.com/zappabad/moodmarket/internal/market/series"

// Config holds the price dynamics of the market service.
type Config struct {
	// WindowCap bounds each instrument's recent price history.
	WindowCap int `mapstructure:"window_cap" yaml:"window_cap"`

	// TickStep is the fixed absolute move applied by every tick.
	TickStep float64 `mapstructure:"tick_step" yaml:"tick_step"`
	// UpProbability is the chance a tick moves up.
	UpProbability float64 `mapstructure:"up_probability" yaml:"up_probability"`
	// TickFloor is the lowest price a tick can produce.
	TickFloor float64 `mapstructure:"tick_floor" yaml:"tick_floor"`
	// MaxTickVolume bounds the volume added per tick.
	MaxTickVolume int64 `mapstructure:"max_tick_volume" yaml:"max_tick_volume"`

	// ShockFloor is the lowest price a crash or bad earnings can produce.
	ShockFloor float64 `mapstructure:"shock_floor" yaml:"shock_floor"`

	CrashProbability float64 `mapstructure:"crash_probability" yaml:"crash_probability"`
	// A crash removes between CrashMinDrop and CrashMinDrop+CrashDropRange of price.
	CrashMinDrop   float64 `mapstructure:"crash_min_drop" yaml:"crash_min_drop"`
	CrashDropRange float64 `mapstructure:"crash_drop_range" yaml:"crash_drop_range"`

	RecessionProbability float64 `mapstructure:"recession_probability" yaml:"recession_probability"`
	RecessionPrice       float64 `mapstructure:"recession_price" yaml:"recession_price"`

	EarningsProbability float64 `mapstructure:"earnings_probability" yaml:"earnings_probability"`
	EarningsMove        float64 `mapstructure:"earnings_move" yaml:"earnings_move"`

	WhaleProbability float64 `mapstructure:"whale_probability" yaml:"whale_probability"`
	// WhaleGain is added to the price as a multiple of it.
	WhaleGain float64 `mapstructure:"whale_gain" yaml:"whale_gain"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		WindowCap:            series.DefaultWindowCap,
		TickStep:             23,
		UpProbability:        0.70,
		TickFloor:            10,
		MaxTickVolume:        1_000_000,
		ShockFloor:           0.01,
		CrashProbability:     1.0 / 80,
		CrashMinDrop:         0.50,
		CrashDropRange:       0.25,
		RecessionProbability: 1.0 / 500,
		RecessionPrice:       1.00,
		EarningsProbability:  1.0 / 80,
		EarningsMove:         0.50,
		WhaleProbability:     1.0 / 300,
		WhaleGain:            10,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WindowCap <= 0 {
		c.WindowCap = def.WindowCap
	}
	if c.TickStep <= 0 {
		c.TickStep = def.TickStep
	}
	if c.UpProbability <= 0 {
		c.UpProbability = def.UpProbability
	}
	if c.TickFloor <= 0 {
		c.TickFloor = def.TickFloor
	}
	if c.MaxTickVolume <= 0 {
		c.MaxTickVolume = def.MaxTickVolume
	}
	if c.ShockFloor <= 0 {
		c.ShockFloor = def.ShockFloor
	}
	if c.CrashProbability <= 0 {
		c.CrashProbability = def.CrashProbability
	}
	if c.CrashMinDrop <= 0 {
		c.CrashMinDrop = def.CrashMinDrop
	}
	if c.CrashDropRange <= 0 {
		c.CrashDropRange = def.CrashDropRange
	}
	if c.RecessionProbability <= 0 {
		c.RecessionProbability = def.RecessionProbability
	}
	if c.RecessionPrice <= 0 {
		c.RecessionPrice = def.RecessionPrice
	}
	if c.EarningsProbability <= 0 {
		c.EarningsProbability = def.EarningsProbability
	}
	if c.EarningsMove <= 0 {
		c.EarningsMove = def.EarningsMove
	}
	if c.WhaleProbability <= 0 {
		c.WhaleProbability = def.WhaleProbability
	}
	if c.WhaleGain <= 0 {
		c.WhaleGain = def.WhaleGain
	}
	return c
}
