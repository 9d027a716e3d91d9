package kernel_test

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonzaloamadio/nachos/internal/kernel"
)

// syscallMachine is a fake Machine with real backing memory, so syscall
// tests can drive the register/buffer marshalling convention end to end
// rather than stubbing it out.
type syscallMachine struct {
	regs [64]int
	mem  []byte
}

func newSyscallMachine() *syscallMachine {
	return &syscallMachine{mem: make([]byte, 4096)}
}

func (m *syscallMachine) ReadRegister(i int) int     { return m.regs[i] }
func (m *syscallMachine) WriteRegister(i int, v int) { m.regs[i] = v }

func (m *syscallMachine) ReadMem(addr, n int) (int, bool) {
	if addr < 0 || n < 0 || addr+n > len(m.mem) {
		return 0, false
	}
	var v int
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | int(m.mem[addr+i])
	}
	return v, true
}

func (m *syscallMachine) WriteMem(addr, n, val int) bool {
	if addr < 0 || n < 0 || addr+n > len(m.mem) {
		return false
	}
	for i := 0; i < n; i++ {
		m.mem[addr+i] = byte(val)
		val >>= 8
	}
	return true
}

func (m *syscallMachine) Run() {}

func (m *syscallMachine) NewAddressSpace(entryPoint int) kernel.AddressSpace {
	return &fakeAddressSpace{}
}

// writeString writes a NUL-terminated string into memory at addr and
// returns addr, for use directly as a syscall argument register value.
func (m *syscallMachine) writeString(addr int, s string) int {
	copy(m.mem[addr:], s)
	m.mem[addr+len(s)] = 0
	return addr
}

// syscallFS is a minimal in-memory FileSystem fake: Create registers a name
// with an empty backing buffer, Open hands back the matching handle.
type syscallFS struct {
	files map[string]*fakeOpenFile
}

func newSyscallFS() *syscallFS { return &syscallFS{files: make(map[string]*fakeOpenFile)} }

func (fs *syscallFS) Create(name string, size int) error {
	if _, ok := fs.files[name]; ok {
		return errors.New("fs: already exists")
	}
	fs.files[name] = &fakeOpenFile{}
	return nil
}

func (fs *syscallFS) Open(name string) (kernel.OpenFile, bool) {
	f, ok := fs.files[name]
	return f, ok
}

type fakeOpenFile struct {
	data []byte
	pos  int
}

func (f *fakeOpenFile) Read(buf []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(buf, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func (f *fakeOpenFile) Write(buf []byte) (int, error) {
	f.data = append(f.data, buf...)
	return len(buf), nil
}

func newSyscallTestKernel(t *testing.T) (*kernel.Kernel, *kernel.Thread, *syscallMachine, *kernel.SyscallDispatcher) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	m := newSyscallMachine()
	k, boot := kernel.New(kernel.Config{
		Interrupts: &fakeInterrupts{level: kernel.IntOn},
		Machine:    m,
		FS:         newSyscallFS(),
		Console:    fakeConsole{},
		Logger:     logger,
	})
	return k, boot, m, kernel.NewSyscallDispatcher(k)
}

func TestSyscallConsoleFDMisuse(t *testing.T) {
	_, _, m, d := newSyscallTestKernel(t)

	m.WriteRegister(kernel.RegResult, kernel.SyscallWrite)
	m.WriteRegister(kernel.RegArg1, 100)
	m.WriteRegister(kernel.RegArg2, 4)
	m.WriteRegister(kernel.RegArg3, kernel.ConsoleInput)
	d.Handle()
	assert.Equal(t, -1, m.ReadRegister(kernel.RegResult), "writing to console input must fail")

	m.WriteRegister(kernel.RegResult, kernel.SyscallRead)
	m.WriteRegister(kernel.RegArg1, 100)
	m.WriteRegister(kernel.RegArg2, 4)
	m.WriteRegister(kernel.RegArg3, kernel.ConsoleOutput)
	d.Handle()
	assert.Equal(t, -1, m.ReadRegister(kernel.RegResult), "reading from console output must fail")
}

func TestSyscallOpenCloseRoundTrip(t *testing.T) {
	k, _, m, d := newSyscallTestKernel(t)
	nameAddr := m.writeString(200, "greeting")

	m.WriteRegister(kernel.RegResult, kernel.SyscallCreate)
	m.WriteRegister(kernel.RegArg1, nameAddr)
	d.Handle()
	require.Equal(t, 0, m.ReadRegister(kernel.RegResult))

	m.WriteRegister(kernel.RegResult, kernel.SyscallOpen)
	m.WriteRegister(kernel.RegArg1, nameAddr)
	d.Handle()
	fd := m.ReadRegister(kernel.RegResult)
	require.GreaterOrEqual(t, fd, 2)
	require.NotNil(t, k.Current().GetFD(fd))

	m.WriteRegister(kernel.RegResult, kernel.SyscallClose)
	m.WriteRegister(kernel.RegArg1, fd)
	d.Handle()
	assert.Equal(t, 0, m.ReadRegister(kernel.RegResult))
	assert.Nil(t, k.Current().GetFD(fd))
}

func TestSyscallJoinBySpaceID(t *testing.T) {
	_, _, m, d := newSyscallTestKernel(t)
	nameAddr := m.writeString(200, "prog")

	m.WriteRegister(kernel.RegResult, kernel.SyscallCreate)
	m.WriteRegister(kernel.RegArg1, nameAddr)
	d.Handle()
	require.Equal(t, 0, m.ReadRegister(kernel.RegResult))

	m.WriteRegister(kernel.RegResult, kernel.SyscallExec)
	m.WriteRegister(kernel.RegArg1, nameAddr)
	d.Handle()
	spaceID := m.ReadRegister(kernel.RegResult)
	require.GreaterOrEqual(t, spaceID, 0)

	m.WriteRegister(kernel.RegResult, kernel.SyscallJoin)
	m.WriteRegister(kernel.RegArg1, spaceID)
	d.Handle()
	assert.Equal(t, 0, m.ReadRegister(kernel.RegResult))
}
