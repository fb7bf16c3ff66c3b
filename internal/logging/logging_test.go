package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestLoggerDoesNotPanic(t *testing.T) {
	l := New(LevelWarn)
	assert.NotPanics(t, func() {
		l.Debugf("suppressed %d", 1)
		l.Infof("suppressed %d", 1)
		l.Warnf("shown %d", 1)
		l.Errorf("shown %d", 1)
	})
}
