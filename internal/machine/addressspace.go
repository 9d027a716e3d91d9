package machine

import "github.com/sirupsen/logrus"

// AddressSpace is a minimal loaded-executable stand-in: it owns no page
// table of its own (CPU's memory region is shared and flat in this
// simulator), but it does own the value a fresh thread's registers should
// be initialized to, and gives SaveState/RestoreState somewhere to log
// from. It implements kernel.AddressSpace.
type AddressSpace struct {
	cpu        *CPU
	entryPoint int
	log        *logrus.Entry
}

// NewAddressSpace constructs an address space that starts execution at
// entryPoint.
func NewAddressSpace(cpu *CPU, entryPoint int, log *logrus.Entry) *AddressSpace {
	return &AddressSpace{cpu: cpu, entryPoint: entryPoint, log: log}
}

// InitRegisters zeroes the register file and sets PC/NextPC to the
// executable's entry point, mirroring AddrSpace::InitRegisters.
func (a *AddressSpace) InitRegisters() {
	for i := 0; i < NumRegisters; i++ {
		a.cpu.WriteRegister(i, 0)
	}
	a.cpu.WriteRegister(34, a.entryPoint) // RegPC
	a.cpu.WriteRegister(35, a.entryPoint+4)
}

// SaveState is a no-op beyond logging: this simulator has no per-space page
// table to swap, since CPU's memory is a single shared region.
func (a *AddressSpace) SaveState() {
	a.log.Trace("address space state saved")
}

// RestoreState is SaveState's counterpart.
func (a *AddressSpace) RestoreState() {
	a.log.Trace("address space state restored")
}
