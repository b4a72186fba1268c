package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v := viper.New()
	require.NoError(t, RegisterFlags(fs, v))
	require.NoError(t, fs.Parse(args))
	return Load(v)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "speed_log.csv", cfg.LogPath)
	assert.Equal(t, 60*time.Second, cfg.Interval)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.RetryDelay)
	assert.Zero(t, cfg.MeasureTimeout)
	assert.Empty(t, cfg.DatabasePath)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg, err := load(t, "--interval=0s", "--max-attempts=5", "--server-id=10,20", "--log=/tmp/x.csv")
	require.NoError(t, err)

	assert.Zero(t, cfg.Interval)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, []int{10, 20}, cfg.ServerIDs)
	assert.Equal(t, "/tmp/x.csv", cfg.LogPath)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("SPEEDMON_RETRY_DELAY", "250ms")
	t.Setenv("SPEEDMON_METRICS_ADDR", ":9112")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, ":9112", cfg.MetricsAddr)
}

func TestEnvironmentServerIDs(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []int
	}{
		{name: "comma separated", value: "1,2", expected: []int{1, 2}},
		{name: "space separated", value: "10 20", expected: []int{10, 20}},
		{name: "single", value: "4242", expected: []int{4242}},
		{name: "empty", value: "", expected: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SPEEDMON_SERVER_ID", tt.value)

			cfg, err := load(t)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.ServerIDs)
		})
	}
}

func TestEnvironmentServerIDsInvalid(t *testing.T) {
	t.Setenv("SPEEDMON_SERVER_ID", "1,abc")

	_, err := load(t)
	assert.ErrorContains(t, err, "server-id")
}

func TestFlagServerIDsBeatEnvironment(t *testing.T) {
	t.Setenv("SPEEDMON_SERVER_ID", "1,2")

	cfg, err := load(t, "--server-id=7")
	require.NoError(t, err)
	assert.Equal(t, []int{7}, cfg.ServerIDs)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speedmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: 15m\nlog: /var/lib/speedmon/log.csv\nserver-id: [3, 4]\n"), 0o644))

	cfg, err := load(t, "--config="+path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Interval)
	assert.Equal(t, []int{3, 4}, cfg.ServerIDs)
	assert.Equal(t, "/var/lib/speedmon/log.csv", cfg.LogPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "negative interval means no delay", mutate: func(c *Config) { c.Interval = -time.Second }},
		{name: "empty log path", mutate: func(c *Config) { c.LogPath = "" }, wantErr: true},
		{name: "zero attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }, wantErr: true},
		{name: "negative retry delay", mutate: func(c *Config) { c.RetryDelay = -1 }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.MeasureTimeout = -1 }, wantErr: true},
		{name: "bad server id", mutate: func(c *Config) { c.ServerIDs = []int{0} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
