package sim

import (
	"sync"
	"sync/atomic"

	"github.com/ardnew/devcore/pkg/ksync"
)

// CPU is a simulated processor complex. The executing CPU is whatever was
// last passed to SetCurrent.
type CPU struct {
	n          uint
	perCluster uint
	cur        atomic.Uint32

	mu       sync.Mutex
	masked   bool
	disables int
}

// NewCPU returns n CPUs grouped perCluster to a cluster.
func NewCPU(n, perCluster uint) *CPU {
	if perCluster == 0 {
		perCluster = n
	}
	return &CPU{n: n, perCluster: perCluster}
}

// SetCurrent selects the executing CPU.
func (c *CPU) SetCurrent(cpu uint) { c.cur.Store(uint32(cpu)) }

// Current implements [hal.CPU].
func (c *CPU) Current() uint { return uint(c.cur.Load()) }

// Count implements [hal.CPU].
func (c *CPU) Count() uint { return c.n }

// Affinity implements [hal.CPU].
func (c *CPU) Affinity(cpu uint) (cluster, id uint) {
	return cpu / c.perCluster, cpu % c.perCluster
}

// Disable implements [ksync.Interrupts].
func (c *CPU) Disable() ksync.IRQState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disables++
	var s ksync.IRQState
	if c.masked {
		s = 1
	}
	c.masked = true
	return s
}

// Restore implements [ksync.Interrupts].
func (c *CPU) Restore(s ksync.IRQState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.masked = s != 0
}

// Masked reports whether local interrupts are currently disabled.
func (c *CPU) Masked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.masked
}

// Disables returns how many times interrupts were disabled.
func (c *CPU) Disables() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disables
}
