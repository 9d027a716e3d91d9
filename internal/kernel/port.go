package kernel

// Port is a single-slot synchronous rendezvous: Send blocks until a
// matching Receive is waiting and the slot is free, and Receive blocks
// until a matching Send has deposited a value. Exactly one message is ever in flight
// through a Port at a time, mirroring synch.cc's Port built on a Lock and
// two Conditions rather than a buffered channel-of-messages design.
type Port struct {
	k    *Kernel
	name string

	lock       *Lock
	senderGo   *Condition
	receiverGo *Condition

	full  bool
	value int

	senders   int
	receivers int
}

// newPort constructs an empty port. Used internally by Fork for a joinable
// thread's own exit channel.
func newPort(k *Kernel, name string) *Port {
	p := &Port{k: k, name: name}
	p.lock = NewLock(k, name+" lock")
	p.senderGo = NewCondition(k, name+" sender")
	p.receiverGo = NewCondition(k, name+" receiver")
	return p
}

// NewPort constructs a standalone port for direct sender/receiver
// rendezvous, independent of any thread's join channel.
func NewPort(k *Kernel, name string) *Port {
	return newPort(k, name)
}

// Send blocks until a receiver is waiting and the slot is empty, deposits
// val, and returns — it does not wait for the receiver to actually take
// the value, only for one to be present. Matching increment/decrement of
// the two sides' counters (Send claims a pending receiver; Receive claims
// a pending sender) is what makes the rendezvous exact without either
// side blocking past the point its counterpart is known to exist.
func (p *Port) Send(val int) {
	p.lock.Acquire()
	defer p.lock.Release()

	p.senders++
	for p.receivers == 0 || p.full {
		p.senderGo.Wait(p.lock)
	}
	p.receivers--
	p.value = val
	p.full = true
	p.receiverGo.Signal(p.lock)
}

// Receive blocks until a sender is waiting and a value has been
// deposited, then takes it and wakes one sender still waiting for the
// slot, if any.
func (p *Port) Receive() int {
	p.lock.Acquire()
	defer p.lock.Release()

	p.receivers++
	p.senderGo.Signal(p.lock)
	for p.senders == 0 || !p.full {
		p.receiverGo.Wait(p.lock)
	}
	p.senders--
	val := p.value
	p.full = false
	p.senderGo.Signal(p.lock)

	return val
}
