package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-learn/core"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	conf := core.NewTestConfig()
	conf.Debug = debug
	l := NewRollbarLogger(log.New(&buf, "", 0), conf)
	l.Enable(false)
	return l, &buf
}

func TestRollbarLogger_print(t *testing.T) {
	l, buf := newTestLogger(true)

	l.Warn("progress P1: giving up", errors.New("conflict"), core.Person{ID: "U1"})
	assert.Equal(t, "progress P1: giving up\nconflict\n", buf.String())
}

func TestRollbarLogger_Debug(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l, buf = newTestLogger(true)
	l.Debug("shown")
	assert.Equal(t, "shown\n", buf.String())
}
