package kernel

// Syscall codes, matching exception.cc's trap numbering.
const (
	SyscallHalt = iota
	SyscallExit
	SyscallExec
	SyscallJoin
	SyscallCreate
	SyscallOpen
	SyscallRead
	SyscallWrite
	SyscallClose
)

const maxStringArg = 256
const consoleBufSize = 256

// SyscallDispatcher decodes and executes a user-mode trap. Construct one per
// Kernel and call Handle from whatever drives the simulated machine's trap
// loop.
type SyscallDispatcher struct {
	k *Kernel
}

// NewSyscallDispatcher constructs a dispatcher bound to k.
func NewSyscallDispatcher(k *Kernel) *SyscallDispatcher {
	return &SyscallDispatcher{k: k}
}

// Handle decodes the trap code from RegResult (r2) and the four argument
// registers, dispatches to the matching syscall body, and always advances
// the program counter before returning — exactly the "every path updates
// PC" discipline exception.cc enforces, so a syscall body never has to
// remember to do it itself.
func (d *SyscallDispatcher) Handle() {
	m := d.k.machine
	code := m.ReadRegister(RegResult)

	switch code {
	case SyscallHalt:
		d.doHalt()
	case SyscallExit:
		d.doExit(m.ReadRegister(RegArg1))
	case SyscallExec:
		d.doExec(m.ReadRegister(RegArg1))
	case SyscallJoin:
		d.doJoin(m.ReadRegister(RegArg1))
	case SyscallCreate:
		d.doCreate(m.ReadRegister(RegArg1))
	case SyscallOpen:
		d.doOpen(m.ReadRegister(RegArg1))
	case SyscallRead:
		d.doRead(m.ReadRegister(RegArg1), m.ReadRegister(RegArg2), m.ReadRegister(RegArg3))
	case SyscallWrite:
		d.doWrite(m.ReadRegister(RegArg1), m.ReadRegister(RegArg2), m.ReadRegister(RegArg3))
	case SyscallClose:
		d.doClose(m.ReadRegister(RegArg1))
	default:
		d.k.Log.WithField("code", code).Error("unknown syscall")
		m.WriteRegister(RegResult, -1)
	}

	d.updateProgramCounter()
}

// updateProgramCounter advances PC/NextPC/PrevPC by one instruction,
// mirroring exception.cc's UpdateMach helper. It runs unconditionally at
// the end of Handle, on every code path that returns (all but Exit),
// including the unknown-syscall one.
func (d *SyscallDispatcher) updateProgramCounter() {
	m := d.k.machine
	pc := m.ReadRegister(RegPC)
	next := m.ReadRegister(RegNextPC)
	m.WriteRegister(RegPrevPC, pc)
	m.WriteRegister(RegPC, next)
	m.WriteRegister(RegNextPC, next+4)
}

func (d *SyscallDispatcher) doHalt() {
	d.k.Log.Info("machine halting")
	d.k.interrupts.halt()
}

// doExit terminates the calling thread. Like Thread.finish, it never
// returns to its caller: Handle's updateProgramCounter call below is dead
// code on this path, same as exception.cc never reaching its own
// ASSERTNOTREACHED after a SC_Exit.
func (d *SyscallDispatcher) doExit(status int) {
	d.k.current.SetExitStatus(status)
	d.k.Log.WithFields(map[string]interface{}{
		"thread": d.k.current.Name(),
		"status": status,
	}).Debug("exit syscall")
	d.k.current.finish()
}

// doExec starts a new thread running the named executable and returns its
// SpaceID to the caller in RegResult. Per the documented accepted
// simplification, Exec spawns a new address space rather than replacing the
// caller's own image, since this core doesn't model a single-address-space
// process abstraction distinct from Thread. The child is forked at priority
// 0, matching the original's newThreadExec (Thread(buffer, 1, 0)) — Exec
// does not inherit the caller's priority.
func (d *SyscallDispatcher) doExec(nameAddr int) {
	name, ok := d.readString(nameAddr, maxStringArg)
	if !ok {
		d.fail("Exec: bad name pointer")
		return
	}

	file, ok := d.k.fs.Open(name)
	if !ok {
		d.k.Log.WithField("file", name).Debug("Exec: file not found")
		d.k.machine.WriteRegister(RegResult, -1)
		return
	}
	_ = file // reading the executable's header/segments is loader plumbing
	// outside this core's scope; the stub file system carries no entry-point
	// metadata, so the address space starts at a fixed entry point of 0.
	space := d.k.machine.NewAddressSpace(0)

	child := Fork(d.k, name, 0, true, func(arg any) {
		space.InitRegisters()
		space.RestoreState()
		d.k.machine.Run()
	}, nil)
	child.SetAddressSpace(space)

	id := d.k.registerSpace(child)
	d.k.machine.WriteRegister(RegResult, int(id))
}

func (d *SyscallDispatcher) doJoin(spaceID int) {
	child, ok := d.k.resolveSpace(SpaceID(spaceID))
	if !ok {
		d.k.machine.WriteRegister(RegResult, -1)
		return
	}
	status := d.k.current.Join(child)
	d.k.machine.WriteRegister(RegResult, status)
}

func (d *SyscallDispatcher) doCreate(nameAddr int) {
	name, ok := d.readString(nameAddr, maxStringArg)
	if !ok {
		d.fail("Create: bad name pointer")
		return
	}
	if err := d.k.fs.Create(name, 0); err != nil {
		d.k.Log.WithError(err).WithField("file", name).Debug("Create failed")
		d.k.machine.WriteRegister(RegResult, -1)
		return
	}
	d.k.machine.WriteRegister(RegResult, 0)
}

func (d *SyscallDispatcher) doOpen(nameAddr int) {
	name, ok := d.readString(nameAddr, maxStringArg)
	if !ok {
		d.fail("Open: bad name pointer")
		return
	}
	file, ok := d.k.fs.Open(name)
	if !ok {
		d.k.machine.WriteRegister(RegResult, -1)
		return
	}
	fd := d.k.current.CreateFD(file)
	d.k.machine.WriteRegister(RegResult, fd)
}

func (d *SyscallDispatcher) doRead(bufAddr, size, fd int) {
	if size < 0 || size > consoleBufSize {
		size = consoleBufSize
	}
	buf := make([]byte, size)

	var n int
	switch fd {
	case ConsoleInput:
		n = d.k.console.ReadStr(buf)
	case ConsoleOutput:
		d.k.Log.Debug("Read: console output is not readable")
		d.k.machine.WriteRegister(RegResult, -1)
		return
	default:
		file := d.k.current.GetFD(fd)
		if file == nil {
			d.k.machine.WriteRegister(RegResult, -1)
			return
		}
		var err error
		n, err = file.Read(buf)
		if err != nil && n == 0 {
			d.k.machine.WriteRegister(RegResult, -1)
			return
		}
	}

	if !d.writeBuffer(bufAddr, buf[:n]) {
		d.fail("Read: bad buffer pointer")
		return
	}
	d.k.machine.WriteRegister(RegResult, n)
}

func (d *SyscallDispatcher) doWrite(bufAddr, size, fd int) {
	if size < 0 || size > consoleBufSize {
		d.fail("Write: invalid size")
		return
	}
	buf, ok := d.readBuffer(bufAddr, size)
	if !ok {
		d.fail("Write: bad buffer pointer")
		return
	}

	switch fd {
	case ConsoleOutput:
		d.k.console.WriteStr(buf)
	case ConsoleInput:
		d.k.Log.Debug("Write: console input is not writable")
		d.k.machine.WriteRegister(RegResult, -1)
		return
	default:
		file := d.k.current.GetFD(fd)
		if file == nil {
			d.k.machine.WriteRegister(RegResult, -1)
			return
		}
		if _, err := file.Write(buf); err != nil {
			d.k.machine.WriteRegister(RegResult, -1)
			return
		}
	}
	d.k.machine.WriteRegister(RegResult, size)
}

func (d *SyscallDispatcher) doClose(fd int) {
	if fd == ConsoleInput || fd == ConsoleOutput {
		d.k.machine.WriteRegister(RegResult, -1)
		return
	}
	d.k.current.RemoveFD(fd)
	d.k.machine.WriteRegister(RegResult, 0)
}

// fail logs a translation/argument fault at debug level and reports -1 to
// user code, per the error taxonomy: these are not programmer errors in
// this core, they're malformed user-mode requests, so no panic.
func (d *SyscallDispatcher) fail(msg string) {
	d.k.Log.Debug(msg)
	d.k.machine.WriteRegister(RegResult, -1)
}

// readString reads a NUL-terminated string from simulated memory, up to
// max bytes, returning false if any byte fails translation.
func (d *SyscallDispatcher) readString(addr, max int) (string, bool) {
	buf := make([]byte, 0, max)
	for i := 0; i < max; i++ {
		v, ok := d.k.machine.ReadMem(addr+i, 1)
		if !ok {
			return "", false
		}
		if v == 0 {
			return string(buf), true
		}
		buf = append(buf, byte(v))
	}
	return string(buf), true
}

// readBuffer reads n bytes from simulated memory starting at addr.
func (d *SyscallDispatcher) readBuffer(addr, n int) ([]byte, bool) {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		v, ok := d.k.machine.ReadMem(addr+i, 1)
		if !ok {
			return nil, false
		}
		buf[i] = byte(v)
	}
	return buf, true
}

// writeBuffer writes buf into simulated memory starting at addr.
func (d *SyscallDispatcher) writeBuffer(addr int, buf []byte) bool {
	for i, b := range buf {
		if !d.k.machine.WriteMem(addr+i, 1, int(b)) {
			return false
		}
	}
	return true
}
