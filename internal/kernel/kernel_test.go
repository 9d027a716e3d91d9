package kernel_test

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonzaloamadio/nachos/internal/kernel"
)

// fakeInterrupts is the simplest possible InterruptController: it tracks a
// level and panics if Idle is ever reached with the ready queue drained and
// nothing that could make progress (the tests never exercise real blocking
// I/O, so Idle indicates a genuine deadlock).
type fakeInterrupts struct {
	mu    sync.Mutex
	level kernel.IntLevel
}

func (f *fakeInterrupts) SetLevel(level kernel.IntLevel) kernel.IntLevel {
	f.mu.Lock()
	defer f.mu.Unlock()
	old := f.level
	f.level = level
	return old
}

func (f *fakeInterrupts) Level() kernel.IntLevel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *fakeInterrupts) Idle() {
	panic("fakeInterrupts: Idle reached — simulated deadlock")
}

func (f *fakeInterrupts) Halt() {}

type fakeMachine struct{ regs [64]int }

func (m *fakeMachine) ReadRegister(i int) int          { return m.regs[i] }
func (m *fakeMachine) WriteRegister(i int, v int)      { m.regs[i] = v }
func (m *fakeMachine) ReadMem(addr, n int) (int, bool) { return 0, false }
func (m *fakeMachine) WriteMem(addr, n, val int) bool  { return false }
func (m *fakeMachine) Run()                            {}

func (m *fakeMachine) NewAddressSpace(entryPoint int) kernel.AddressSpace {
	return &fakeAddressSpace{}
}

type fakeAddressSpace struct{}

func (fakeAddressSpace) InitRegisters() {}
func (fakeAddressSpace) SaveState()     {}
func (fakeAddressSpace) RestoreState()  {}

type fakeFS struct{}

func (fakeFS) Create(name string, size int) error       { return nil }
func (fakeFS) Open(name string) (kernel.OpenFile, bool) { return nil, false }

type fakeConsole struct{}

func (fakeConsole) Get() byte              { return 0 }
func (fakeConsole) Put(b byte)             {}
func (fakeConsole) ReadStr(buf []byte) int { return 0 }
func (fakeConsole) WriteStr(buf []byte)    {}

func newTestKernel(t *testing.T) (*kernel.Kernel, *kernel.Thread) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	k, boot := kernel.New(kernel.Config{
		Interrupts: &fakeInterrupts{level: kernel.IntOn},
		Machine:    &fakeMachine{},
		FS:         fakeFS{},
		Console:    fakeConsole{},
		Logger:     logger,
	})
	return k, boot
}

func TestForkReadyOrdering(t *testing.T) {
	k, boot := newTestKernel(t)

	var order []string
	lowT := kernel.Fork(k, "low", 1, true, func(arg any) {
		order = append(order, "low")
	}, nil)
	highT := kernel.Fork(k, "high", 5, true, func(arg any) {
		order = append(order, "high")
	}, nil)

	boot.Join(highT)
	boot.Join(lowT)

	assert.Equal(t, []string{"high", "low"}, order)
}

func TestSemaphoreMutualExclusion(t *testing.T) {
	k, boot := newTestKernel(t)
	sem := kernel.NewSemaphore(k, "mutex", 1)

	var counter int
	const n = 5
	var threads []*kernel.Thread
	for i := 0; i < n; i++ {
		threads = append(threads, kernel.Fork(k, "inc", 3, true, func(arg any) {
			sem.P()
			counter++
			sem.V()
		}, nil))
	}
	for _, th := range threads {
		boot.Join(th)
	}

	assert.Equal(t, n, counter)
}

func TestLockExcludesConcurrentHolders(t *testing.T) {
	k, boot := newTestKernel(t)
	lock := kernel.NewLock(k, "l")

	var inside int
	var sawOverlap bool
	run := func(arg any) {
		lock.Acquire()
		inside++
		if inside > 1 {
			sawOverlap = true
		}
		inside--
		lock.Release()
	}

	a := kernel.Fork(k, "a", 3, true, run, nil)
	b := kernel.Fork(k, "b", 3, true, run, nil)
	boot.Join(a)
	boot.Join(b)

	assert.False(t, sawOverlap, "two threads were inside the critical section at once")
}

func TestLockPriorityDonation(t *testing.T) {
	k, boot := newTestKernel(t)
	lock := kernel.NewLock(k, "shared")

	// acquired signals boot that low now holds the lock; proceed lets low
	// resume only after high has had a chance to block on Acquire and
	// donate. Without this handshake, strict priority dispatch would just
	// run high (priority 10) to completion before low (priority 1) ever
	// gets the CPU, and there would be nothing for high to donate to.
	acquired := kernel.NewSemaphore(k, "acquired", 0)
	proceed := kernel.NewSemaphore(k, "proceed", 0)

	var observed kernel.Priority
	low := kernel.Fork(k, "low", 1, true, func(arg any) {
		lock.Acquire()
		acquired.V()
		proceed.P()
		observed = k.Current().Priority()
		lock.Release()
	}, nil)

	acquired.P() // blocks boot until low has the lock; dispatches low first

	high := kernel.Fork(k, "high", 10, true, func(arg any) {
		lock.Acquire()
		lock.Release()
	}, nil)

	// boot has nothing else ready but high; yielding dispatches it, and
	// Acquire blocks it behind low, donating high's priority to low.
	boot.Yield()

	proceed.V()
	boot.Join(low)
	boot.Join(high)

	require.GreaterOrEqual(t, int(observed), 10)
}

func TestConditionBoundedBuffer(t *testing.T) {
	k, boot := newTestKernel(t)
	lock := kernel.NewLock(k, "buf")
	notFull := kernel.NewCondition(k, "nf")
	notEmpty := kernel.NewCondition(k, "ne")

	const capacity = 2
	const items = 10
	var buf []int
	var consumed []int

	producer := kernel.Fork(k, "producer", 5, true, func(arg any) {
		for i := 0; i < items; i++ {
			lock.Acquire()
			for len(buf) == capacity {
				notFull.Wait(lock)
			}
			buf = append(buf, i)
			notEmpty.Signal(lock)
			lock.Release()
		}
	}, nil)
	consumer := kernel.Fork(k, "consumer", 5, true, func(arg any) {
		for i := 0; i < items; i++ {
			lock.Acquire()
			for len(buf) == 0 {
				notEmpty.Wait(lock)
			}
			v := buf[0]
			buf = buf[1:]
			notFull.Signal(lock)
			lock.Release()
			consumed = append(consumed, v)
		}
	}, nil)

	boot.Join(producer)
	boot.Join(consumer)

	require.Len(t, consumed, items)
	for i, v := range consumed {
		assert.Equal(t, i, v)
	}
}

func TestPortRendezvous(t *testing.T) {
	k, boot := newTestKernel(t)
	port := kernel.NewPort(k, "p")

	var received int
	receiver := kernel.Fork(k, "receiver", 5, true, func(arg any) {
		received = port.Receive()
	}, nil)
	sender := kernel.Fork(k, "sender", 5, true, func(arg any) {
		port.Send(7)
	}, nil)

	boot.Join(sender)
	boot.Join(receiver)

	assert.Equal(t, 7, received)
}

func TestJoinOnNonexistentThreadReturnsNegativeOne(t *testing.T) {
	k, boot := newTestKernel(t)
	ghost := kernel.Fork(k, "ghost", 1, true, func(arg any) {}, nil)
	boot.Join(ghost) // drain it so it actually finishes and is reaped

	assert.Equal(t, -1, boot.Join(ghost))
	_ = k
}
