// Package demo drives a handful of independent simulator instances
// concurrently, one goroutine group per scenario, to exercise the kernel
// package's end-to-end behavior: strict priority ordering, lock donation,
// a bounded buffer over a condition variable, and a port rendezvous.
package demo

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gonzaloamadio/nachos/internal/console"
	"github.com/gonzaloamadio/nachos/internal/fs"
	"github.com/gonzaloamadio/nachos/internal/kernel"
	"github.com/gonzaloamadio/nachos/internal/machine"
)

// Result is one scenario's outcome, tagged with the run's correlation ID
// so concurrent scenarios' log lines can be told apart.
type Result struct {
	RunID uuid.UUID
	Name  string
	Log   string
	Err   error
}

// newKernel wires up a fresh, isolated Kernel with in-memory collaborators.
// Both logrus output and console output are captured into the returned
// buffer, for Result.Log.
func newKernel(logger *logrus.Logger) (*kernel.Kernel, *kernel.Thread, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	entry := logrus.NewEntry(logger)
	con := console.New(bytes.NewReader(nil), buf, entry)
	filesystem := fs.New()
	ctrl := machine.NewController(entry)
	cpu := machine.NewCPU(64*1024, entry)

	k, boot := kernel.New(kernel.Config{
		Interrupts: ctrl,
		Machine:    cpu,
		FS:         filesystem,
		Console:    con,
		Logger:     logger,
	})
	return k, boot, buf
}

// RunAll executes every scenario concurrently, each in its own Kernel, and
// returns once all have finished, with the first error any of them
// reported — errgroup.Group is
// used purely for its "wait for all, propagate first error" behavior, not
// for cancellation, since scenarios don't share resources.
func RunAll() ([]Result, error) {
	scenarios := []struct {
		name string
		run  func(*kernel.Kernel, *kernel.Thread) error
	}{
		{"priority-ordering", priorityOrdering},
		{"lock-donation", lockDonation},
		{"bounded-buffer", boundedBuffer},
		{"port-rendezvous", portRendezvous},
	}

	results := make([]Result, len(scenarios))
	var g errgroup.Group

	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			logger := logrus.New()
			logger.SetLevel(logrus.DebugLevel)

			k, boot, buf := newKernel(logger)
			err := sc.run(k, boot)
			results[i] = Result{RunID: k.RunID, Name: sc.name, Log: buf.String(), Err: err}
			return err
		})
	}

	err := g.Wait()
	return results, err
}

// priorityOrdering forks ten threads at distinct priorities that each just
// record their name, and asserts they finish in strictly descending
// priority order — the ready queue must never let a lower-priority thread
// run ahead of a ready higher-priority one.
func priorityOrdering(k *kernel.Kernel, boot *kernel.Thread) error {
	order := make([]string, 0, 10)

	var children []*kernel.Thread
	for i := 9; i >= 0; i-- {
		name := fmt.Sprintf("worker-%d", i)
		priority := kernel.Priority(i + 1)
		children = append(children, kernel.Fork(k, name, priority, true, func(arg any) {
			order = append(order, arg.(string))
		}, name))
	}

	for _, c := range children {
		boot.Join(c)
	}

	for i := 1; i < len(order); i++ {
		if order[i-1] < order[i] {
			return fmt.Errorf("priority order violated: %v", order)
		}
	}
	return nil
}

// lockDonation forks a low-priority thread that acquires a shared lock and
// a high-priority thread that then blocks on the same lock, and asserts
// the low-priority thread's effective priority was boosted while it held
// the lock. A pair of semaphores hand-shakes the sequencing: without it,
// strict priority dispatch would just run the high-priority thread to
// completion before the low-priority one ever gets the CPU, leaving
// nothing for it to donate to.
func lockDonation(k *kernel.Kernel, boot *kernel.Thread) error {
	lock := kernel.NewLock(k, "shared")
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

	acquired.P() // blocks boot until low has the lock

	high := kernel.Fork(k, "high", 10, true, func(arg any) {
		lock.Acquire()
		lock.Release()
	}, nil)

	boot.Yield() // dispatches high; Acquire blocks it behind low, donating

	proceed.V()
	boot.Join(low)
	boot.Join(high)

	if observed < 10 {
		return fmt.Errorf("expected donated priority >= 10, got %d", observed)
	}
	return nil
}

// boundedBuffer runs a single producer/consumer pair over a fixed-capacity
// buffer guarded by a lock and two conditions (not-full / not-empty),
// asserting every produced item is consumed exactly once, in order.
func boundedBuffer(k *kernel.Kernel, boot *kernel.Thread) error {
	const capacity = 4
	const items = 20

	lock := kernel.NewLock(k, "buffer")
	notFull := kernel.NewCondition(k, "not-full")
	notEmpty := kernel.NewCondition(k, "not-empty")

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

	if len(consumed) != items {
		return fmt.Errorf("expected %d items consumed, got %d", items, len(consumed))
	}
	for i, v := range consumed {
		if v != i {
			return fmt.Errorf("item %d out of order: got %d", i, v)
		}
	}
	return nil
}

// portRendezvous forks a sender and a receiver over a single Port and
// asserts the value made it across.
func portRendezvous(k *kernel.Kernel, boot *kernel.Thread) error {
	got := make(chan int, 1)
	port := kernel.NewPort(k, "demo-port")

	receiver := kernel.Fork(k, "receiver", 5, true, func(arg any) {
		got <- port.Receive()
	}, nil)
	sender := kernel.Fork(k, "sender", 5, true, func(arg any) {
		port.Send(42)
	}, nil)

	boot.Join(sender)
	boot.Join(receiver)

	select {
	case v := <-got:
		if v != 42 {
			return fmt.Errorf("expected 42 across the port, got %d", v)
		}
	default:
		return fmt.Errorf("receiver never got a value")
	}
	return nil
}
