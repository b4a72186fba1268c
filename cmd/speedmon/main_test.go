package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRootFlagsRegistered(t *testing.T) {
	for _, name := range []string{"config", "log", "interval", "max-attempts", "retry-delay", "measure-timeout", "server-id", "db", "metrics-addr", "debug"} {
		assert.NotNil(t, rootCmd.Flags().Lookup(name), name)
	}
}

func TestBuildLogger(t *testing.T) {
	for _, debug := range []bool{false, true} {
		l, err := buildLogger(debug)
		require.NoError(t, err)
		assert.Equal(t, debug, l.Core().Enabled(zapcore.DebugLevel))
	}
}
