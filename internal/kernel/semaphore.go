package kernel

// Semaphore is the single primitive from which Lock, Condition and Port are
// all built, exactly as in synch.cc: a nonnegative counter plus a FIFO wait
// list, with P/V masking interrupts around every access to either.
type Semaphore struct {
	k       *Kernel
	name    string
	value   int
	waiting []*Thread
}

// NewSemaphore constructs a semaphore with the given initial value.
func NewSemaphore(k *Kernel, name string, initial int) *Semaphore {
	if initial < 0 {
		panic("NewSemaphore: negative initial value")
	}
	return &Semaphore{k: k, name: name, value: initial}
}

// P waits until the semaphore's value is positive, then decrements it. A
// thread that finds value already 0 enqueues itself and sleeps; it may be
// woken and find value still 0 (another waiter got there first on a
// subsequent V), so it loops rather than assuming its turn.
func (s *Semaphore) P() {
	prior := s.k.interrupts.acquireMask()
	defer s.k.interrupts.restore(prior)

	for s.value == 0 {
		s.waiting = append(s.waiting, s.k.current)
		s.k.current.sleep()
	}
	s.value--
}

// V increments the semaphore's value and, if any thread is waiting, wakes
// the one that has waited longest by making it ready to run. V does not
// itself cause a context switch: the woken thread merely becomes eligible
// for the scheduler's next choice.
func (s *Semaphore) V() {
	prior := s.k.interrupts.acquireMask()
	defer s.k.interrupts.restore(prior)

	if len(s.waiting) > 0 {
		t := s.waiting[0]
		s.waiting = s.waiting[1:]
		s.k.scheduler.readyToRun(t)
	}
	s.value++
}
