package kernel

// InterruptGate is the uniprocessor's sole atomicity primitive. Every core
// operation that mutates the ready queue, a semaphore's wait list, or a
// thread's status does so between acquireMask and restore. No locks are
// used inside the synchronization primitives themselves: a blocking lock
// here would recursively invoke the scheduler, which is exactly the
// recursion masking exists to avoid (see synch.cc's header comment).
type InterruptGate struct {
	controller InterruptController
}

func newInterruptGate(c InterruptController) *InterruptGate {
	return &InterruptGate{controller: c}
}

// acquireMask disables interrupts and returns the level that was in effect
// beforehand, so the caller can restore exactly that level rather than
// unconditionally re-enabling (a routine may be entered with interrupts
// already off).
func (g *InterruptGate) acquireMask() IntLevel {
	return g.controller.SetLevel(IntOff)
}

// restore re-sets the interrupt level to one previously returned by
// acquireMask.
func (g *InterruptGate) restore(prior IntLevel) {
	g.controller.SetLevel(prior)
}

func (g *InterruptGate) level() IntLevel {
	return g.controller.Level()
}

func (g *InterruptGate) idle() {
	g.controller.Idle()
}

func (g *InterruptGate) halt() {
	g.controller.Halt()
}
