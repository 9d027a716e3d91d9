package kernel

// Lock is a binary semaphore plus an owner pointer, with one-level priority
// donation on Acquire. It is built directly on Semaphore rather than
// reimplementing a wait list, matching synch.cc's Lock.
type Lock struct {
	k       *Kernel
	name    string
	sem     *Semaphore
	owner   *Thread
	donated bool
}

// NewLock constructs an unheld lock.
func NewLock(k *Kernel, name string) *Lock {
	return &Lock{k: k, name: name, sem: NewSemaphore(k, name+" sem", 1)}
}

// Acquire blocks until the lock is free, then takes it. If the lock is
// currently held by a lower-priority thread, the calling thread's priority
// is donated to the owner for the duration of its hold, and the owner is
// reassigned within the ready queue (or, if the owner isn't ready but
// blocked elsewhere, the donation still takes effect on its TCB so that a
// later readyToRun uses the boosted value).
//
// Donation here is one level only and non-transitive, matching the
// documented accepted simplification: it does not chase the owner's own
// blocking chain.
func (l *Lock) Acquire() {
	caller := l.k.current

	if l.IsHeldByCurrentThread() {
		panic("Acquire: nested re-acquisition by the holder")
	}

	prior := l.k.interrupts.acquireMask()
	if l.owner != nil && caller.priority > l.owner.priority {
		l.owner.priority = caller.priority
		l.donated = true
		if l.owner.status == Ready {
			l.k.scheduler.readyList.reassign(l.owner)
		}
	}
	l.k.interrupts.restore(prior)

	l.sem.P()

	l.owner = caller
}

// Release gives up the lock. If Acquire donated a boosted priority to this
// thread while it held the lock, Release unconditionally restores the
// owner's own initialPriority — even if a second, higher donation arrived
// in the meantime, that second donation is lost. This mirrors the source's
// Lock::Release behavior exactly and is preserved as-is (see DESIGN.md).
func (l *Lock) Release() {
	if l.owner != l.k.current {
		panic("Release: caller does not hold the lock")
	}

	prior := l.k.interrupts.acquireMask()
	if l.donated {
		l.owner.priority = l.owner.initialPriority
		l.donated = false
	}
	l.owner = nil
	l.k.interrupts.restore(prior)

	l.sem.V()
}

// IsHeldByCurrentThread reports whether the calling thread currently owns
// the lock.
func (l *Lock) IsHeldByCurrentThread() bool {
	return l.owner == l.k.current
}
