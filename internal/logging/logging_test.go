package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "info")
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("Hash store opened", zap.String("path", "x.db"))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "\tINFO\t")
	assert.Contains(t, out, "Hash store opened")
	assert.Contains(t, out, `{"path": "x.db"}`)
}

func TestNew_Debug(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "debug")
	require.NoError(t, err)

	log.Debug("shown")
	assert.Contains(t, buf.String(), "\tDEBUG\tshown")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud")
	assert.Error(t, err)
}
