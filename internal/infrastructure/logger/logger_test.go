package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspine/spine/internal/config"
)

func TestNewDefaultsToInfoJSON(t *testing.T) {
	l, err := New(config.LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewConsoleFormat(t *testing.T) {
	l, err := New(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewFallsBackOnInvalidLevel(t *testing.T) {
	l, err := New(config.LogConfig{Level: "not-a-level"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}
