package machine

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gonzaloamadio/nachos/internal/kernel"
)

// Controller is the simulated interrupt hardware: a single on/off line plus
// a clock that advances whenever the kernel idles because nothing is
// runnable. It implements kernel.InterruptController.
//
// The tick-advancing Idle loop and the disable/restore pair are adapted
// from the teacher's own interrupt-masking primitives and its delta-queue
// clock manager: where that code kept a real delta list of sleeping
// processes per tick, this Controller only needs to notice that simulated
// time passed and give any registered timer callback a chance to make a
// thread ready again.
type Controller struct {
	mu    sync.Mutex
	level kernel.IntLevel
	ticks uint64

	onIdle func(ticks uint64)
	onHalt func()

	log *logrus.Entry
}

// NewController constructs a controller starting with interrupts enabled.
func NewController(log *logrus.Entry) *Controller {
	return &Controller{level: kernel.IntOn, log: log, onHalt: func() {}}
}

// SetOnIdle installs a callback invoked on every simulated tick while the
// kernel has nothing runnable; e.g. to fire a completed I/O and V() a
// semaphore. May be nil.
func (c *Controller) SetOnIdle(fn func(ticks uint64)) { c.onIdle = fn }

// SetOnHalt installs the callback Halt invokes; defaults to a no-op so
// tests don't tear down the process. A nil fn restores the no-op.
func (c *Controller) SetOnHalt(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	c.onHalt = fn
}

// SetLevel sets the interrupt line and returns the level that was
// previously in effect, matching Disable/Restore's "return old mask"
// convention from the teacher's interrupt-utility code.
func (c *Controller) SetLevel(level kernel.IntLevel) kernel.IntLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.level
	c.level = level
	return old
}

// Level reports the current interrupt line state.
func (c *Controller) Level() kernel.IntLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Idle advances the simulated clock by one tick and invokes the idle
// callback, if any. The kernel calls this in a loop whenever the ready
// queue is empty; reaching Idle with no callback able to ever make a
// thread ready again is the deadlock the scheduler's caller is expected to
// detect and log.
func (c *Controller) Idle() {
	c.mu.Lock()
	c.ticks++
	tick := c.ticks
	cb := c.onIdle
	c.mu.Unlock()

	c.log.WithField("tick", tick).Trace("idle tick")
	if cb != nil {
		cb(tick)
	}
}

// Halt stops the simulation by invoking the installed halt callback.
func (c *Controller) Halt() {
	c.log.Info("halt requested")
	c.onHalt()
}
