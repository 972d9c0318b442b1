package sim

import (
	"encoding/binary"
	"sync"
)

// Access records one register write.
type Access struct {
	Off   uintptr
	Value uint64
	Width int
}

// Regs is an in-memory register window. Writes land in the backing store
// unless Hook claims them.
type Regs struct {
	mu   sync.Mutex
	mem  []byte
	log  []Access
	keep bool

	// Hook, when set, sees every 32-bit write before it is stored. It may
	// update the window through Poke and returns true to suppress the plain
	// store.
	Hook func(r *Regs, off uintptr, v uint32) bool
}

// NewRegs returns a zeroed window of size bytes. When record is true every
// write is appended to the access log.
func NewRegs(size int, record bool) *Regs {
	return &Regs{mem: make([]byte, size), keep: record}
}

// Read32 implements [hal.Registers].
func (r *Regs) Read32(off uintptr) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return binary.LittleEndian.Uint32(r.mem[off:])
}

// Write32 implements [hal.Registers].
func (r *Regs) Write32(off uintptr, v uint32) {
	r.mu.Lock()
	if r.keep {
		r.log = append(r.log, Access{Off: off, Value: uint64(v), Width: 32})
	}
	hook := r.Hook
	r.mu.Unlock()

	if hook != nil && hook(r, off, v) {
		return
	}
	r.Poke(off, v)
}

// Read64 implements [hal.Registers].
func (r *Regs) Read64(off uintptr) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return binary.LittleEndian.Uint64(r.mem[off:])
}

// Write64 implements [hal.Registers].
func (r *Regs) Write64(off uintptr, v uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keep {
		r.log = append(r.log, Access{Off: off, Value: v, Width: 64})
	}
	binary.LittleEndian.PutUint64(r.mem[off:], v)
}

// Poke stores v without logging or hooks.
func (r *Regs) Poke(off uintptr, v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	binary.LittleEndian.PutUint32(r.mem[off:], v)
}

// Writes returns a copy of the access log.
func (r *Regs) Writes() []Access {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Access(nil), r.log...)
}

// ResetLog clears the access log.
func (r *Regs) ResetLog() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = r.log[:0]
}
