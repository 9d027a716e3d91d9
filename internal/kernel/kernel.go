// Package kernel implements the cooperative multithreading and
// synchronization core: the thread control block, the priority-FIFO
// scheduler, the semaphore/lock/condition/port primitives, and the system
// call dispatcher that sits on top of them.
//
// Every core operation that touches the ready queue, a semaphore's wait
// list, or a thread's status does so with simulated interrupts masked via
// InterruptGate; that masking is the only form of mutual exclusion used
// anywhere in this package.
package kernel

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxPriority is the number of priority buckets in the ready queue.
// Priorities run from 0 (lowest) to MaxPriority-1 (highest).
const MaxPriority = 32

// Priority is a thread's scheduling priority, in [0, MaxPriority).
type Priority int

// FDMax is the size of a thread's per-thread file descriptor table.
// Slots 0 and 1 are reserved for console input and output.
const FDMax = 16

const (
	// ConsoleInput is the well-known descriptor for the console's input side.
	ConsoleInput = 0
	// ConsoleOutput is the well-known descriptor for the console's output side.
	ConsoleOutput = 1
)

const stackSize = 1024
const stackFencepost = 0xDE

// Kernel centralizes the global mutable state a uniprocessor simulator
// inherently has: the current-thread pointer, the ready queue, the
// interrupt controller, the file system, the console, the process list,
// and the scheduler's carcass slot. Everything else in this package takes
// a *Kernel explicitly rather than reaching for package-level globals.
type Kernel struct {
	RunID uuid.UUID
	Log   *logrus.Entry

	interrupts *InterruptGate
	machine    Machine
	fs         FileSystem
	console    Console

	scheduler *Scheduler
	current   *Thread
	carcass   *Thread

	procList map[*Thread]struct{}

	spaces    map[SpaceID]*Thread
	nextSpace SpaceID
}

// SpaceID is the opaque handle Exec hands back to user code in place of a
// raw kernel pointer to a Thread; Join resolves it back to a *Thread via
// Kernel.spaces. See DESIGN.md for why this replaces the source's literal
// "kernel pointer to the Thread" with a stable table index.
type SpaceID int32

// Config bundles the external collaborators a Kernel needs. All fields
// except Logger are required (a nil Logger falls back to logrus's standard
// logger); the simulator's entry point is responsible for constructing
// concrete instances (internal/machine, internal/fs, internal/console).
type Config struct {
	Interrupts InterruptController
	Machine    Machine
	FS         FileSystem
	Console    Console
	Logger     *logrus.Logger
}

// New constructs a Kernel and its boot thread. The boot thread represents
// the goroutine calling New: it is immediately current and RUNNING, and is
// not inserted into the ready queue at construction, matching the invariant
// that the running thread never appears there. Callers typically Fork their first
// real threads from the boot thread and then let it Yield or block like
// any other thread.
func New(cfg Config) (*Kernel, *Thread) {
	runID := uuid.New()
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	k := &Kernel{
		RunID:      runID,
		Log:        logger.WithField("run", runID.String()),
		interrupts: newInterruptGate(cfg.Interrupts),
		machine:    cfg.Machine,
		fs:         cfg.FS,
		console:    cfg.Console,
		procList:   make(map[*Thread]struct{}),
		spaces:     make(map[SpaceID]*Thread),
	}
	k.scheduler = newScheduler(k)

	boot := &Thread{
		name:            "boot",
		status:          Running,
		stack:           make([]byte, stackSize),
		initialPriority: 0,
		priority:        0,
		resume:          make(chan struct{}, 1),
		k:               k,
	}
	boot.stack[0] = stackFencepost
	k.current = boot
	k.procList[boot] = struct{}{}

	return k, boot
}

// Current returns the thread presently holding the simulated CPU.
func (k *Kernel) Current() *Thread { return k.current }

func (k *Kernel) addProc(t *Thread)    { k.procList[t] = struct{}{} }
func (k *Kernel) removeProc(t *Thread) { delete(k.procList, t) }

func (k *Kernel) hasProc(t *Thread) bool {
	_, ok := k.procList[t]
	return ok
}

func (k *Kernel) registerSpace(t *Thread) SpaceID {
	id := k.nextSpace
	k.nextSpace++
	k.spaces[id] = t
	return id
}

func (k *Kernel) resolveSpace(id SpaceID) (*Thread, bool) {
	t, ok := k.spaces[id]
	return t, ok
}
