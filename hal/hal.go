package hal

import "github.com/ardnew/devcore/pkg/ksync"

// Registers is a window of memory-mapped device registers. Offsets are
// relative to the start of the window. Accesses are single-copy atomic and
// are never merged or reordered by the implementation.
type Registers interface {
	Read32(off uintptr) uint32
	Write32(off uintptr, v uint32)
	Read64(off uintptr) uint64
	Write64(off uintptr, v uint64)
}

// CPU exposes the processor topology and local interrupt masking.
type CPU interface {
	ksync.Interrupts

	// Current returns the logical number of the executing CPU.
	Current() uint

	// Count returns the number of logical CPUs present.
	Count() uint

	// Affinity returns the cluster and the CPU number within that cluster
	// for logical CPU cpu.
	Affinity(cpu uint) (cluster, id uint)
}

// Cache performs data cache maintenance on a byte range.
type Cache interface {
	// CleanInvalidate writes back and invalidates the range.
	CleanInvalidate(p []byte)

	// Invalidate discards the range from the cache.
	Invalidate(p []byte)
}

// GICSysRegs is the GICv3 CPU interface reached through system registers.
// All accesses apply to the executing CPU.
type GICSysRegs interface {
	ReadIAR1() uint32
	WriteEOIR1(v uint32)
	WriteSGI1R(v uint64)
	ReadSRE() uint32
	WriteSRE(v uint32)
	WritePMR(v uint32)
	WriteCTLR(v uint32)
	WriteIGRPEN1(v uint32)
}

// Frame is the register state captured on exception entry. Handlers treat
// it as opaque.
type Frame struct {
	PC     uint64
	SP     uint64
	SPSR   uint64
	Regs   [31]uint64
	FromEL uint8
}

// CPUMask is a set of logical CPUs, bit n for CPU n.
type CPUMask uint32

// AllCPUs selects every CPU.
const AllCPUs CPUMask = ^CPUMask(0)

// Has reports whether cpu is in the mask.
func (m CPUMask) Has(cpu uint) bool {
	return cpu < 32 && m&(1<<cpu) != 0
}

// Present returns the mask of CPUs that exist on a system with n CPUs.
func Present(n uint) CPUMask {
	if n >= 32 {
		return AllCPUs
	}
	return CPUMask(1)<<n - 1
}
