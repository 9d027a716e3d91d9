package console_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/gonzaloamadio/nachos/internal/console"
)

func newTestConsole(in string) (*console.SynchConsole, *bytes.Buffer) {
	out := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := console.New(strings.NewReader(in), out, logrus.NewEntry(logger))
	return c, out
}

func TestGetPut(t *testing.T) {
	c, out := newTestConsole("A")
	assert.Equal(t, byte('A'), c.Get())
	c.Put('Z')
	assert.Equal(t, "Z", out.String())
}

func TestReadStrStopsAtNewline(t *testing.T) {
	c, _ := newTestConsole("hello\nworld")
	buf := make([]byte, 32)
	n := c.ReadStr(buf)
	assert.Equal(t, "hello\n", string(buf[:n]))
}

func TestWriteStr(t *testing.T) {
	c, out := newTestConsole("")
	c.WriteStr([]byte("output"))
	assert.Equal(t, "output", out.String())
}

func TestGetAtEOFReturnsZero(t *testing.T) {
	c, _ := newTestConsole("")
	assert.Equal(t, byte(0), c.Get())
}
