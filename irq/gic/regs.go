package gic

// Distributor registers, relative to the distributor base.
const (
	gicdCTLR  = 0x0000
	gicdTYPER = 0x0004
	gicdPIDR2 = 0xffe8
)

func gicdIGROUPR(n uint) uintptr   { return 0x0080 + uintptr(n)*4 }
func gicdISENABLER(n uint) uintptr { return 0x0100 + uintptr(n)*4 }
func gicdICENABLER(n uint) uintptr { return 0x0180 + uintptr(n)*4 }
func gicdICPENDR(n uint) uintptr   { return 0x0280 + uintptr(n)*4 }
func gicdICFGR(n uint) uintptr     { return 0x0c00 + uintptr(n)*4 }
func gicdIGRPMODR(n uint) uintptr  { return 0x0d00 + uintptr(n)*4 }
func gicdIROUTER(n uint) uintptr   { return 0x6000 + uintptr(n)*8 }

// Redistributor registers, relative to a CPU's redistributor. The SGI/PPI
// frame follows the control frame.
const (
	gicrCTLR       = 0x0000
	gicrSGIFrame   = 0x10000
	gicrIGROUPR0   = gicrSGIFrame + 0x0080
	gicrISENABLER0 = gicrSGIFrame + 0x0100
	gicrICENABLER0 = gicrSGIFrame + 0x0180
	gicrICPENDR0   = gicrSGIFrame + 0x0280
)

// GICD_CTLR bits.
const (
	ctlrEnableG0   = 1 << 0
	ctlrEnableG1NS = 1 << 1
	ctlrARES       = 1 << 4
	ctlrRWP        = 1 << 31
)

// Interrupt ID ranges.
const (
	BaseSGI = 0
	BasePPI = 16
	BaseSPI = 32

	spuriousFirst = 0x3fe
	iarIntIDMask  = 0x3ff
)

// Architecture revisions reported in GICD_PIDR2.
const (
	revGICv3 = 3
	revGICv4 = 4
)

// SGI target filter flags.
const (
	SGIFlagTargetFilterNotSender = 0x1
	SGIFlagTargetFilterSender    = 0x2
	SGIFlagNS                    = 0x4
)

func bits(v uint32, hi, lo uint) uint32 {
	return (v >> lo) & (1<<(hi-lo+1) - 1)
}
