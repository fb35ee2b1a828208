package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl)

	lvl, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, lvl)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewWritesLogFile(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	dir := filepath.Join(t.TempDir(), "Log")
	l, err := New(Config{Level: "info", Dir: dir, Name: "run1"})
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "abc")
	l.Info(ctx, "hello")
	l.Debug(ctx, "hidden")
	_ = l.Sync()

	body, err := os.ReadFile(filepath.Join(dir, "run1.log"))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"msg":"hello"`)
	assert.Contains(t, string(body), `"run_id":"abc"`)
	assert.Contains(t, string(body), `"timestamp"`)
	assert.NotContains(t, string(body), "hidden")
	assert.Same(t, l.Zap(), zap.L())
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithRunID(context.Background(), NewRunID())
	ctx = WithLogger(ctx, zap.New(core))

	FromContext(ctx).Info("tagged")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, RunID(ctx), logs.All()[0].ContextMap()["run_id"])

	assert.Equal(t, "no-run-id", RunID(context.Background()))
}
