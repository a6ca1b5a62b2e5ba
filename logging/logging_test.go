package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterSplitsByLevel(t *testing.T) {
	var out, errs bytes.Buffer
	log := New(slog.LevelInfo, &out, &errs).With("component", "test")

	log.Debug("hidden")
	log.Info("checked out", "item_id", 3)
	log.Warn("skipped record")
	log.Error("save failed")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "checked out")
	assert.Contains(t, out.String(), "item_id=3")
	assert.Contains(t, out.String(), "component=test")
	assert.Contains(t, out.String(), "skipped record")
	assert.NotContains(t, out.String(), "save failed")
	assert.Contains(t, errs.String(), "save failed")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
	l, err = ParseLevel(" Warn ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
