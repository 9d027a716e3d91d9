package kernel

// Condition is a Mesa-semantics condition variable: Signal wakes a waiter
// without handing it the lock, so a woken thread must recheck its own
// predicate after Wait returns, exactly as synch.cc documents and as every
// caller in this core does. Each waiter parks on its own private one-shot
// semaphore rather than sharing the condition's own queue machinery, so
// Signal can wake exactly one waiter without a thundering herd.
type Condition struct {
	k       *Kernel
	name    string
	waiting []*Semaphore
}

// NewCondition constructs a condition variable with no waiters.
func NewCondition(k *Kernel, name string) *Condition {
	return &Condition{k: k, name: name}
}

// Wait atomically releases lock and blocks the caller, then reacquires
// lock before returning. lock must be held by the caller on entry and is
// held by the caller again on return. There is no guarantee the awaited
// condition still holds when Wait returns — Mesa semantics require the
// caller to loop on its predicate.
func (c *Condition) Wait(lock *Lock) {
	if !lock.IsHeldByCurrentThread() {
		panic("Condition.Wait: lock not held by caller")
	}

	private := NewSemaphore(c.k, c.name+" waiter", 0)

	prior := c.k.interrupts.acquireMask()
	c.waiting = append(c.waiting, private)
	c.k.interrupts.restore(prior)

	lock.Release()
	private.P()
	lock.Acquire()
}

// Signal wakes the longest-waiting thread blocked on this condition, if
// any. lock must be held by the caller; Signal does not itself release it,
// so the woken thread will still block in lock.Acquire until the caller
// eventually releases.
func (c *Condition) Signal(lock *Lock) {
	if !lock.IsHeldByCurrentThread() {
		panic("Condition.Signal: lock not held by caller")
	}

	prior := c.k.interrupts.acquireMask()
	var woken *Semaphore
	if len(c.waiting) > 0 {
		woken = c.waiting[0]
		c.waiting = c.waiting[1:]
	}
	c.k.interrupts.restore(prior)

	if woken != nil {
		woken.V()
	}
}

// Broadcast wakes every thread currently waiting on this condition. lock
// must be held by the caller.
func (c *Condition) Broadcast(lock *Lock) {
	if !lock.IsHeldByCurrentThread() {
		panic("Condition.Broadcast: lock not held by caller")
	}

	prior := c.k.interrupts.acquireMask()
	woken := c.waiting
	c.waiting = nil
	c.k.interrupts.restore(prior)

	for _, sem := range woken {
		sem.V()
	}
}
