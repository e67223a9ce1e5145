package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogUsableBeforeInit(t *testing.T) {
	require.NotNil(t, Log)
	assert.NotPanics(t, func() { Log.Infof("hello %s", "world") })
}

func TestInit(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	require.NoError(t, Init("debug", true))
	assert.NotSame(t, prev, Log)

	require.NoError(t, Init("warn", false))
}

func TestInit_BadLevel(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	err := Init("loud", false)
	require.Error(t, err)
	assert.Same(t, prev, Log)
}
