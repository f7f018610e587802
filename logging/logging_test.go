package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, closer, err := New(Options{Dir: dir, Level: "debug", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("channel", "control").Debug("Channel open")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "aileron.log"))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "Channel open", entry["msg"])
	assert.Equal(t, "control", entry["channel"])
}

func TestNewTextAndLevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, closer, err := New(Options{Dir: dir, Name: "run.log", Level: "warn"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)

	_, _, err = New(Options{Dir: t.TempDir(), Level: "loud"})
	assert.Error(t, err)
}
