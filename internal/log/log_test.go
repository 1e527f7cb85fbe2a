package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Info("hello", String("k", "v"))
		l.With(String("component", "test")).Warn("careful")
	})
}
