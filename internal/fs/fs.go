// Package fs implements the stub file system collaborator: named files
// backed by a simple block allocator, adapted from the teacher's buffer
// pool and memory-rounding helpers (a free list of fixed-size blocks)
// rather than a raw byte slice per file.
package fs

import (
	"fmt"
	"sync"

	"github.com/gonzaloamadio/nachos/internal/kernel"
)

// blockSize is the unit of allocation, rounded the way the teacher's
// RoundMB/TruncMB helpers rounded buffer requests to a fixed granularity.
const blockSize = 128

func roundToBlock(n int) int {
	return (n + blockSize - 1) &^ (blockSize - 1)
}

// block is one fixed-size allocation unit, linked into a free list when
// unused — the same shape as the teacher's BpEntry free-list node.
type block struct {
	data [blockSize]byte
	next *block
}

// FileSystem is an in-memory stand-in for Nachos's disk-backed file
// system. It implements kernel.FileSystem.
type FileSystem struct {
	mu    sync.Mutex
	files map[string]*file
	free  *block
}

// New constructs an empty file system.
func New() *FileSystem {
	return &FileSystem{files: make(map[string]*file)}
}

func (fs *FileSystem) allocBlock() *block {
	if fs.free != nil {
		b := fs.free
		fs.free = b.next
		b.next = nil
		return b
	}
	return &block{}
}

func (fs *FileSystem) freeBlock(b *block) {
	b.next = fs.free
	fs.free = b
}

// Create makes an empty file named name, pre-sized to size bytes (size is
// advisory; the file grows on Write regardless). It fails if name already
// exists, matching FileSystem::Create's semantics of not truncating an
// existing file.
func (fs *FileSystem) Create(name string, size int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.files[name]; exists {
		return fmt.Errorf("fs: %q already exists", name)
	}

	f := &file{name: name}
	want := roundToBlock(size)
	for got := 0; got < want; got += blockSize {
		f.blocks = append(f.blocks, fs.allocBlock())
	}
	fs.files[name] = f
	return nil
}

// Open returns a handle to the named file, or ok=false if it doesn't
// exist.
func (fs *FileSystem) Open(name string) (kernel.OpenFile, bool) {
	fs.mu.Lock()
	f, ok := fs.files[name]
	fs.mu.Unlock()
	if !ok {
		return nil, false
	}
	return &OpenFile{fs: fs, f: f}, true
}

// Remove deletes a file and returns its blocks to the free list.
func (fs *FileSystem) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, ok := fs.files[name]
	if !ok {
		return fmt.Errorf("fs: %q does not exist", name)
	}
	for _, b := range f.blocks {
		fs.freeBlock(b)
	}
	delete(fs.files, name)
	return nil
}

type file struct {
	mu     sync.Mutex
	name   string
	length int
	blocks []*block
}
