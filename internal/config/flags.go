package config

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SPEEDMON_INTERVAL=30s or
// SPEEDMON_SERVER_ID=1,2
const EnvPrefix = "SPEEDMON"

// RegisterFlags adds the configuration flags to fs and binds them into v
func RegisterFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	def := Default()

	fs.String("config", "", "Optional YAML config file")
	fs.String("log", def.LogPath, "CSV measurement log path")
	fs.Duration("interval", def.Interval, "Delay between measurement cycles, <= 0 for none")
	fs.Int("max-attempts", def.MaxAttempts, "Measurement attempts per cycle")
	fs.Duration("retry-delay", def.RetryDelay, "Delay between failed attempts")
	fs.Duration("measure-timeout", def.MeasureTimeout, "Per-attempt timeout, 0 for none")
	fs.IntSlice("server-id", nil, "Preferred speedtest server ids")
	fs.String("db", def.DatabasePath, "Optional SQLite mirror path")
	fs.String("metrics-addr", def.MetricsAddr, "Optional metrics listen address, e.g. :9112")
	fs.Bool("debug", def.Debug, "Enable debug logging")

	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return nil
}

// Load reads the configuration from v, including the optional config file
func Load(v *viper.Viper) (Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	serverIDs, err := intSlice(v.Get("server-id"))
	if err != nil {
		return Config{}, fmt.Errorf("server-id: %w", err)
	}

	cfg := Config{
		LogPath:        v.GetString("log"),
		Interval:       v.GetDuration("interval"),
		MaxAttempts:    v.GetInt("max-attempts"),
		RetryDelay:     v.GetDuration("retry-delay"),
		MeasureTimeout: v.GetDuration("measure-timeout"),
		ServerIDs:      serverIDs,
		DatabasePath:   v.GetString("db"),
		MetricsAddr:    v.GetString("metrics-addr"),
		Debug:          v.GetBool("debug"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// intSlice converts the forms viper yields for a list: parsed flag values,
// config file sequences and raw environment strings such as "1,2" or "1 2".
func intSlice(raw any) ([]int, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		raw = strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
	}
	return cast.ToIntSliceE(raw)
}
