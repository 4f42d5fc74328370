package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchalot/benchalot/internal/system"
)

func TestASLRCommandPassesThroughWhenDisabled(t *testing.T) {
	assert.Equal(t, "echo hi", system.ASLRCommand("echo hi", false))
}

func TestASLRCommandWrapsWithSetarch(t *testing.T) {
	out := system.ASLRCommand("echo hi", true)
	assert.Contains(t, out, "setarch")
	assert.Contains(t, out, "-R")
	assert.Contains(t, out, `"echo hi"`)
}

func TestApplyWithNoControlsRequestedIsANoOp(t *testing.T) {
	guard, err := system.Apply(nil, false, false, false, false)
	require.NoError(t, err)
	require.NotNil(t, guard)
	assert.Empty(t, guard.Release())
}
