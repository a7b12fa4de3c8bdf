package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithOutput_JSONFields(t *testing.T) {
	t.Cleanup(func() { log = nil })

	var buf bytes.Buffer
	require.NoError(t, InitWithOutput("debug", "json", &buf))

	WithFields(logrus.Fields{"user_id": "u-1"}).Info("session opened")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session opened", entry["msg"])
	assert.Equal(t, "u-1", entry["user_id"])
}

func TestInitWithOutput_LevelFilters(t *testing.T) {
	t.Cleanup(func() { log = nil })

	var buf bytes.Buffer
	require.NoError(t, InitWithOutput("warn", "text", &buf))

	Infof("hidden %d", 1)
	assert.Zero(t, buf.Len())

	Warnf("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}

func TestInitWithOutput_RejectsUnknownLevel(t *testing.T) {
	t.Cleanup(func() { log = nil })
	assert.Error(t, InitWithOutput("verbose", "text", &bytes.Buffer{}))
}

func TestHelpers_NilSafe(t *testing.T) {
	log = nil
	assert.NotPanics(t, func() {
		Debug("x")
		Info("x")
		Warn("x")
		Error("x")
		WithFields(logrus.Fields{"k": "v"}).Info("dropped")
	})
}
