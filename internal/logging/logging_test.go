package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
	assert.Contains(t, out, `"time":`)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty")

	log.Debug().Msg("dbg")
	log.Info().Msg("inf")

	out := buf.String()
	assert.NotContains(t, out, "dbg")
	assert.Contains(t, out, "inf")
}

func TestComponent_AddsField(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, "info"), "gateway")

	log.Info().Msg("armed")

	require.Contains(t, buf.String(), `"component":"gateway"`)
}
