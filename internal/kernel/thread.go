package kernel

import "fmt"

// Status is a thread's position in its lifecycle.
type Status int

const (
	JustCreated Status = iota
	Ready
	Running
	Blocked
)

func (s Status) String() string {
	switch s {
	case JustCreated:
		return "JUST_CREATED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// NumUserRegisters is the size of the saved user register bank a thread
// with an address space carries across a context switch.
const NumUserRegisters = 40

// Thread is the thread control block: C4 of the core. Exactly one Thread
// has status Running at any point outside a context switch, and that
// thread is never present in the ready queue.
type Thread struct {
	name   string
	status Status

	// stack is a stand-in for the kernel stack region spec.md's data model
	// names (base+top); stack[0] carries the fencepost checkOverflow
	// validates. The real "stack" backing this thread's execution is its
	// goroutine, which Go manages; this slice exists purely so
	// checkOverflow has the invariant the source checks.
	stack []byte

	initialPriority Priority
	priority        Priority

	joinable   bool
	port       *Port
	exitStatus int

	space         AddressSpace
	userRegisters [NumUserRegisters]int

	fdTable [FDMax]OpenFile

	// resume is the channel this thread's goroutine blocks on whenever it
	// is not the one running; Scheduler.run sends on it to dispatch this
	// thread (the goroutine analogue of SWITCH).
	resume chan struct{}

	entry func(arg any)
	arg   any

	k *Kernel
}

// Name returns the thread's debug name.
func (t *Thread) Name() string { return t.name }

// Status returns the thread's current lifecycle status.
func (t *Thread) Status() Status { return t.status }

// Priority returns the thread's current (possibly donated) priority.
func (t *Thread) Priority() Priority { return t.priority }

// SetExitStatus records the value Exit/Finish will hand to a joiner.
func (t *Thread) SetExitStatus(code int) { t.exitStatus = code }

// SetAddressSpace attaches a loaded address space to this thread, so the
// scheduler will save/restore its user register bank across switches.
func (t *Thread) SetAddressSpace(space AddressSpace) { t.space = space }

// Fork allocates a thread control block, starts its backing goroutine
// parked at the trampoline, and makes it READY. It mirrors thread.cc's
// Thread::Fork plus the constructor: the two are one call here because Go
// has no separate "allocate, then Fork" step worth preserving.
//
// entry is called with arg once the thread is first dispatched; when entry
// returns, the thread calls finish and its goroutine parks forever.
func Fork(k *Kernel, name string, priority Priority, joinable bool, entry func(arg any), arg any) *Thread {
	if priority < 0 || priority >= MaxPriority {
		panic(fmt.Sprintf("Fork %q: invalid priority %d", name, priority))
	}

	t := &Thread{
		name:            name,
		status:          JustCreated,
		stack:           make([]byte, stackSize),
		initialPriority: priority,
		priority:        priority,
		joinable:        joinable,
		entry:           entry,
		arg:             arg,
		resume:          make(chan struct{}, 1),
		k:               k,
	}
	t.stack[0] = stackFencepost

	if joinable {
		t.port = newPort(k, name+" join port")
	}

	go t.trampoline()

	prior := k.interrupts.acquireMask()
	k.scheduler.readyToRun(t)
	k.addProc(t)
	k.interrupts.restore(prior)

	k.Log.WithFields(map[string]interface{}{
		"thread":   name,
		"priority": priority,
		"joinable": joinable,
	}).Debug("forked")

	return t
}

// trampoline is the code a freshly forked thread "returns into": it
// mirrors the source's StackAllocate, which arranges for SWITCH to land in
// ThreadRoot, which enables interrupts, calls the forked function, then
// calls Finish. Interrupts are off here because whichever thread last
// called Scheduler.run to dispatch us did so from within a masked region;
// enabling them explicitly before running user code is exactly what the
// source's InterruptEnable trampoline step does.
func (t *Thread) trampoline() {
	<-t.resume
	t.k.interrupts.restore(IntOn)
	t.entry(t.arg)
	t.finish()
}

// Yield relinquishes the CPU if a thread of at least equal priority is
// ready; otherwise it returns immediately having kept the CPU. It must be
// called by the current thread.
func (t *Thread) Yield() {
	k := t.k
	prior := k.interrupts.acquireMask()
	defer k.interrupts.restore(prior)

	if t != k.current {
		panic("Yield: caller is not the current thread")
	}

	next := k.scheduler.findNextToRun()
	if next == nil {
		return
	}

	if t.priority <= next.priority {
		k.scheduler.readyToRun(t)
		k.scheduler.run(next)
	} else {
		k.scheduler.readyToRun(next)
	}
}

// sleep relinquishes the CPU because the current thread is blocked on a
// synchronization object. It requires interrupts already masked and that
// the caller is the current thread (both asserted, matching thread.cc's
// Thread::Sleep). If no thread is ready, it idles the simulated machine
// until an interrupt makes one runnable.
func (t *Thread) sleep() {
	k := t.k
	if k.interrupts.level() != IntOff {
		panic("Sleep: interrupts must be masked")
	}
	if t != k.current {
		panic("Sleep: caller is not the current thread")
	}

	t.status = Blocked
	k.Log.WithField("thread", t.name).Debug("sleeping")

	for {
		next := k.scheduler.findNextToRun()
		if next != nil {
			k.scheduler.run(next)
			return
		}
		k.interrupts.idle()
	}
}

// finish is called once a forked function returns. It sends the exit
// status to a joiner (if joinable), removes itself from the process list,
// parks itself in the carcass slot, and sleeps forever: it never returns
// to its caller, matching thread.cc's Thread::Finish.
func (t *Thread) finish() {
	k := t.k
	k.interrupts.acquireMask()

	if t != k.current {
		panic("finish: caller is not the current thread")
	}

	k.Log.WithFields(map[string]interface{}{
		"thread": t.name,
		"status": t.exitStatus,
	}).Debug("finished")

	if t.joinable {
		t.port.Send(t.exitStatus)
	}

	k.removeProc(t)
	k.carcass = t
	t.sleep()

	panic("finish: a finished thread was rescheduled")
}

// Join blocks the caller until child exits, returning child's exit status.
// If child is not a live thread (already reaped, or never joinable), it
// returns -1 immediately rather than blocking forever. The joiner, not the
// child, destroys the child's Port — doing it in Finish would race the
// child still holding the port's lock at the moment of destruction.
func (t *Thread) Join(child *Thread) int {
	k := t.k
	if !k.hasProc(child) || child.port == nil {
		return -1
	}
	status := child.port.Receive()
	child.port = nil
	return status
}

// checkOverflow validates the stack fencepost written at Fork time,
// mirroring thread.cc's Thread::CheckOverflow.
func (t *Thread) checkOverflow() {
	if len(t.stack) == 0 {
		return
	}
	if t.stack[0] != stackFencepost {
		panic(fmt.Sprintf("thread %q: stack overflow detected", t.name))
	}
}

// GetFD returns the file handle installed at id, or nil if none.
func (t *Thread) GetFD(id int) OpenFile {
	if id < 0 || id >= FDMax {
		return nil
	}
	return t.fdTable[id]
}

// CreateFD installs file into the first free slot starting at index 2
// (0 and 1 are reserved for the console) and returns that slot, or -1 if
// the table is full.
func (t *Thread) CreateFD(file OpenFile) int {
	for i := 2; i < FDMax; i++ {
		if t.fdTable[i] == nil {
			t.fdTable[i] = file
			return i
		}
	}
	return -1
}

// RemoveFD clears the descriptor at id.
func (t *Thread) RemoveFD(id int) {
	if id < 0 || id >= FDMax {
		return
	}
	t.fdTable[id] = nil
}

// saveUserState copies the machine's register file into this thread's
// private bank, used by the scheduler around a context switch for threads
// that have an address space.
func (t *Thread) saveUserState() {
	for i := 0; i < NumUserRegisters; i++ {
		t.userRegisters[i] = t.k.machine.ReadRegister(i)
	}
}

// restoreUserState is saveUserState's inverse.
func (t *Thread) restoreUserState() {
	for i := 0; i < NumUserRegisters; i++ {
		t.k.machine.WriteRegister(i, t.userRegisters[i])
	}
}
