// Package console implements a synchronous console device over an
// io.Reader/io.Writer pair, the same shape as Nachos's SynchConsole: reads
// and writes block the calling thread until the underlying device
// completes, rather than exposing raw interrupt-driven completion to
// syscall handlers.
package console

import (
	"bufio"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// SynchConsole wraps an io.Reader and io.Writer with locks so Get/Put/
// ReadStr/WriteStr behave as blocking, serialized operations. It
// implements kernel.Console.
type SynchConsole struct {
	rmu sync.Mutex
	wmu sync.Mutex

	r   *bufio.Reader
	w   io.Writer
	log *logrus.Entry
}

// New constructs a console reading from r and writing to w.
func New(r io.Reader, w io.Writer, log *logrus.Entry) *SynchConsole {
	return &SynchConsole{r: bufio.NewReader(r), w: w, log: log}
}

// Get blocks for a single byte of input. On EOF or error it returns 0,
// mirroring the source treating console EOF as an unusual but non-fatal
// condition the caller must itself decide how to handle.
func (c *SynchConsole) Get() byte {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	b, err := c.r.ReadByte()
	if err != nil {
		c.log.WithError(err).Debug("console read failed")
		return 0
	}
	return b
}

// Put writes a single byte.
func (c *SynchConsole) Put(b byte) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if _, err := c.w.Write([]byte{b}); err != nil {
		c.log.WithError(err).Debug("console write failed")
	}
}

// ReadStr fills buf with up to len(buf) bytes of input, stopping after a
// newline (which is kept in buf) or at EOF, and returns the count read.
func (c *SynchConsole) ReadStr(buf []byte) int {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	n := 0
	for n < len(buf) {
		b, err := c.r.ReadByte()
		if err != nil {
			break
		}
		buf[n] = b
		n++
		if b == '\n' {
			break
		}
	}
	return n
}

// WriteStr writes buf in full.
func (c *SynchConsole) WriteStr(buf []byte) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if _, err := c.w.Write(buf); err != nil {
		c.log.WithError(err).Debug("console write failed")
	}
}
