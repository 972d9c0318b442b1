//go:build linux

package mmio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/devcore/pkg"
)

// DefaultPath is the physical memory device.
const DefaultPath = "/dev/mem"

// Window is a physical register range mapped into the process with
// unix.Mmap. It implements [hal.Registers].
type Window struct {
	base uint64
	mem  []byte
}

// Open maps size bytes of physical memory starting at base from the device
// at path. base must be page aligned.
func Open(path string, base uint64, size int) (*Window, error) {
	page := uint64(os.Getpagesize())
	if base%page != 0 || size <= 0 {
		return nil, fmt.Errorf("mmio: base %#x size %d: %w", base, size, pkg.ErrInvalidArgs)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("mmio: open %s: %w", path, err)
	}
	defer unix.Close(fd)

	mem, err := unix.Mmap(fd, int64(base), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmio: map %#x+%#x: %w", base, size, err)
	}

	pkg.LogDebug(pkg.ComponentHAL, "mapped register window",
		"path", path, "base", fmt.Sprintf("%#x", base), "size", size)
	return &Window{base: base, mem: mem}, nil
}

// Base returns the physical address of offset zero.
func (w *Window) Base() uint64 { return w.base }

// Size returns the window length in bytes.
func (w *Window) Size() int { return len(w.mem) }

// Close unmaps the window.
func (w *Window) Close() error {
	if w.mem == nil {
		return nil
	}
	err := unix.Munmap(w.mem)
	w.mem = nil
	return err
}

func (w *Window) ptr(off uintptr, width uintptr) unsafe.Pointer {
	if off%width != 0 || off+width > uintptr(len(w.mem)) {
		panic(fmt.Sprintf("mmio: access %#x/%d outside window of %#x bytes", off, width, len(w.mem)))
	}
	return unsafe.Pointer(&w.mem[off])
}

// Read32 implements [hal.Registers].
func (w *Window) Read32(off uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(w.ptr(off, 4)))
}

// Write32 implements [hal.Registers].
func (w *Window) Write32(off uintptr, v uint32) {
	atomic.StoreUint32((*uint32)(w.ptr(off, 4)), v)
}

// Read64 implements [hal.Registers].
func (w *Window) Read64(off uintptr) uint64 {
	return atomic.LoadUint64((*uint64)(w.ptr(off, 8)))
}

// Write64 implements [hal.Registers].
func (w *Window) Write64(off uintptr, v uint64) {
	atomic.StoreUint64((*uint64)(w.ptr(off, 8)), v)
}
