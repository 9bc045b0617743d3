package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	Use(zap.New(core))
	t.Cleanup(func() { defaultLogger = nil })

	Debug("hidden %d", 1)
	Info("hidden %d", 2)
	Warn("shown %d", 3)
	Error("shown %d", 4)

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "shown 3", entries[0].Message)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	defaultLogger = nil
	Debug("no logger")
	Info("no logger")
	Sync()
}

func TestInitFormats(t *testing.T) {
	t.Cleanup(func() { defaultLogger = nil })
	for _, format := range []string{"json", "text"} {
		Init("debug", format)
		assert.NotNil(t, defaultLogger)
	}
}
