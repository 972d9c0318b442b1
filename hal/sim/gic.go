package sim

import "sync"

// SpuriousIAR is returned by ReadIAR1 when no interrupt is pending.
const SpuriousIAR = 0x3ff

// GICSysRegs simulates the GICv3 CPU interface of every CPU. Interrupts are
// made pending with Raise and acknowledged in FIFO order.
type GICSysRegs struct {
	mu      sync.Mutex
	pending []uint32

	EOIs    []uint32
	SGIs    []uint64
	SRE     uint32
	PMR     uint32
	CTLR    uint32
	IGRPEN1 uint32
}

// Raise makes intid pending.
func (g *GICSysRegs) Raise(intid uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = append(g.pending, intid)
}

// ReadIAR1 implements [hal.GICSysRegs].
func (g *GICSysRegs) ReadIAR1() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pending) == 0 {
		return SpuriousIAR
	}
	v := g.pending[0]
	g.pending = g.pending[1:]
	return v
}

// WriteEOIR1 implements [hal.GICSysRegs].
func (g *GICSysRegs) WriteEOIR1(v uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.EOIs = append(g.EOIs, v)
}

// WriteSGI1R implements [hal.GICSysRegs].
func (g *GICSysRegs) WriteSGI1R(v uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SGIs = append(g.SGIs, v)
}

// ReadSRE implements [hal.GICSysRegs].
func (g *GICSysRegs) ReadSRE() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.SRE
}

// WriteSRE implements [hal.GICSysRegs].
func (g *GICSysRegs) WriteSRE(v uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SRE = v
}

// WritePMR implements [hal.GICSysRegs].
func (g *GICSysRegs) WritePMR(v uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.PMR = v
}

// WriteCTLR implements [hal.GICSysRegs].
func (g *GICSysRegs) WriteCTLR(v uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CTLR = v
}

// WriteIGRPEN1 implements [hal.GICSysRegs].
func (g *GICSysRegs) WriteIGRPEN1(v uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.IGRPEN1 = v
}

// Snapshot returns copies of the EOI and SGI logs.
func (g *GICSysRegs) Snapshot() (eois []uint32, sgis []uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]uint32(nil), g.EOIs...), append([]uint64(nil), g.SGIs...)
}
