// Package config loads the game configuration from defaults, an optional
// YAML file and MOODMARKET_* environment variables, in that order.
package config

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zappabad/moodmarket/internal/game"
)

// EnvPrefix prefixes every environment override, e.g. MOODMARKET_SEED or
// MOODMARKET_SESSION_STARTING_CASH.
const EnvPrefix = "MOODMARKET"

// Load returns game.DefaultConfig overlaid with the file at path, if any,
// and the environment.
func Load(path string) (game.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := Dump(game.DefaultConfig())
	if err != nil {
		return game.Config{}, err
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return game.Config{}, fmt.Errorf("read defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return game.Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg game.Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToDateHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return game.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Dump renders cfg as YAML.
func Dump(cfg game.Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

// stringToDateHookFunc accepts a bare date or an RFC 3339 timestamp.
func stringToDateHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if d, err := time.Parse(time.DateOnly, s); err == nil {
			return d, nil
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", s, err)
		}
		return ts, nil
	}
}
