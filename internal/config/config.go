package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the speed monitor
type Config struct {
	LogPath        string
	Interval       time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	MeasureTimeout time.Duration
	ServerIDs      []int
	DatabasePath   string
	MetricsAddr    string
	Debug          bool
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		LogPath:     "speed_log.csv",
		Interval:    60 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  5 * time.Second,
	}
}

// Validate checks if the configuration is valid.
// A non-positive Interval is allowed and means cycles run back to back.
func (c *Config) Validate() error {
	if c.LogPath == "" {
		return fmt.Errorf("log path cannot be empty")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.MeasureTimeout < 0 {
		return fmt.Errorf("measure timeout cannot be negative")
	}
	for _, id := range c.ServerIDs {
		if id <= 0 {
			return fmt.Errorf("invalid server id %d", id)
		}
	}
	return nil
}
