package log

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug": log.DebugLevel,
		"INFO":  log.InfoLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
		"":      log.WarnLevel,
		"bogus": log.WarnLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestSetOutputKeepsLevel(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	var buf bytes.Buffer
	Logger = newLogger(&buf, log.InfoLevel)
	SetOutput(&buf)
	Debug("hidden")
	Info("shown", "key", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "key=v")
}

func TestErrorShownAtDefaultLevel(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	var buf bytes.Buffer
	Logger = newLogger(&buf, ParseLevel(""))
	Info("quiet")
	Error("session crashed", "crashes", 4)
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "crashes=4")
}
