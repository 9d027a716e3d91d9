package kernel

import "github.com/davecgh/go-spew/spew"

// Scheduler owns the ReadyQueue, the current-thread pointer (via the
// enclosing Kernel) and the carcass slot: a single pointer a terminating
// thread writes into to announce its own destruction (thread.cc's
// threadToBeDestroyed). The outgoing thread is still executing on its own
// goroutine at the point SWITCH hands off, so it cannot free itself; the
// next thread to actually run reclaims the carcass on its way back from
// the switch.
type Scheduler struct {
	k         *Kernel
	readyList *ReadyQueue
}

func newScheduler(k *Kernel) *Scheduler {
	return &Scheduler{k: k, readyList: newReadyQueue()}
}

// readyToRun requires interrupts masked. It marks t READY and appends it
// to the ready queue at its current priority.
func (s *Scheduler) readyToRun(t *Thread) {
	t.status = Ready
	if t.priority < 0 || t.priority >= MaxPriority {
		panic("readyToRun: invalid priority")
	}
	s.readyList.append(t)
}

// findNextToRun requires interrupts masked. It returns and removes the
// highest-priority ready thread, or nil.
func (s *Scheduler) findNextToRun() *Thread {
	return s.readyList.removeHighest()
}

// run dispatches the CPU to next. It saves the outgoing thread's user
// state (if it has an address space), checks its stack sentinel, then
// performs the SWITCH: this core models SWITCH as a goroutine hand-off —
// next's goroutine is woken via its resume channel, and the outgoing
// thread's goroutine blocks on its own resume channel until some later
// run() targets it again. Channel communication's happens-before guarantee
// is what makes this safe without any lock: every write the outgoing
// thread made is visible to the incoming thread once it wakes, and vice
// versa on the way back.
//
// run must be called with interrupts masked, exactly as scheduler.cc's Run
// assumes (it has no locking of its own — see InterruptGate's doc comment
// on why synchronization primitives can't be used here).
func (s *Scheduler) run(next *Thread) {
	old := s.k.current

	if old.space != nil {
		old.saveUserState()
		old.space.SaveState()
	}
	old.checkOverflow()

	s.k.current = next
	next.status = Running

	s.k.Log.WithFields(map[string]interface{}{
		"from": old.name,
		"to":   next.name,
	}).Debug("switching")

	next.resume <- struct{}{} // SWITCH(old, next): wake next...
	<-old.resume              // ...and go to sleep until switched back to.

	// Execution resumes here only once some later run() call targets
	// `old` again (or never, if old was Finish-ing).
	s.reclaimCarcass()

	if s.k.current.space != nil {
		s.k.current.restoreUserState()
		s.k.current.space.RestoreState()
	}
}

// reclaimCarcass destroys any thread parked in the carcass slot. "Destroy"
// here means drop every reference the kernel holds to it; actually freeing
// the underlying goroutine's stack is not meaningful in a garbage-collected
// host language and is out of scope per spec.md's non-goals (reclaiming
// memory of the currently running thread before context switch). The
// parked goroutine itself simply blocks forever, bounded by the total
// number of threads ever forked.
func (s *Scheduler) reclaimCarcass() {
	if s.k.carcass == nil {
		return
	}
	dead := s.k.carcass
	s.k.carcass = nil
	s.k.Log.WithField("thread", dead.name).Debug("carcass reclaimed")
}

// Dump renders the ready queue's contents for debugging, the Go-idiomatic
// replacement for scheduler.cc's Scheduler::Print (which walked each
// bucket with a hand-rolled Apply callback).
func (s *Scheduler) Dump() string {
	snapshot := make(map[int][]string)
	for p := 0; p < MaxPriority; p++ {
		b := s.readyList.buckets[p]
		if len(b) == 0 {
			continue
		}
		names := make([]string, len(b))
		for i, t := range b {
			names[i] = t.name
		}
		snapshot[p] = names
	}
	return spew.Sdump(snapshot)
}
