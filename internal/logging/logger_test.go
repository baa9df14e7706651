package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	prod, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, prod)
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))

	dev, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, dev)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}

func TestMustNew(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		logger := MustNew(true)
		assert.NotNil(t, logger)
	})
}
