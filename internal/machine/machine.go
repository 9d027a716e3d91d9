// Package machine implements the simulated CPU the kernel package drives:
// a flat register file, byte-addressable memory with translation that can
// fail (modeling an unmapped page), and a cooperative interrupt controller
// standing in for real timer/disk/console interrupt sources.
package machine

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gonzaloamadio/nachos/internal/kernel"
)

// NumRegisters is the size of the simulated register file; kernel.RegPC and
// friends index into it.
const NumRegisters = 40

// CPU is a minimal simulated machine: a register file plus a byte-addressable
// memory region. It implements kernel.Machine.
type CPU struct {
	mu   sync.Mutex
	regs [NumRegisters]int
	mem  []byte
	log  *logrus.Entry
}

// NewCPU constructs a machine with memSize bytes of addressable memory.
func NewCPU(memSize int, log *logrus.Entry) *CPU {
	return &CPU{mem: make([]byte, memSize), log: log}
}

func (c *CPU) ReadRegister(i int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= NumRegisters {
		return 0
	}
	return c.regs[i]
}

func (c *CPU) WriteRegister(i int, v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= NumRegisters {
		return
	}
	c.regs[i] = v
}

// ReadMem reads an n-byte little-endian value at addr. It returns false
// (a translation fault) if the access falls outside the mapped region,
// mirroring a real MMU's page-fault boundary.
func (c *CPU) ReadMem(addr, n int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if addr < 0 || n < 0 || addr+n > len(c.mem) {
		return 0, false
	}
	var v int
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | int(c.mem[addr+i])
	}
	return v, true
}

// WriteMem writes the low n bytes of val, little-endian, at addr.
func (c *CPU) WriteMem(addr, n int, val int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if addr < 0 || n < 0 || addr+n > len(c.mem) {
		return false
	}
	for i := 0; i < n; i++ {
		c.mem[addr+i] = byte(val)
		val >>= 8
	}
	return true
}

// Run is a placeholder for actually stepping simulated user-mode
// instructions; this core's scope is the kernel side of the trap boundary,
// not an instruction-level CPU simulator, so Run only logs.
func (c *CPU) Run() {
	c.log.Debug("Run: instruction-level execution is outside this core's scope")
}

// NewAddressSpace constructs an AddressSpace bound to this CPU, implementing
// kernel.Machine's factory method so Exec has somewhere to get one from.
func (c *CPU) NewAddressSpace(entryPoint int) kernel.AddressSpace {
	return NewAddressSpace(c, entryPoint, c.log)
}
