package sim

import (
	"testing"

	"github.com/ardnew/devcore/hal"
)

var (
	_ hal.Registers  = (*Regs)(nil)
	_ hal.CPU        = (*CPU)(nil)
	_ hal.Cache      = (*Cache)(nil)
	_ hal.GICSysRegs = (*GICSysRegs)(nil)
)

func TestRegs_Hook(t *testing.T) {
	r := NewRegs(64, true)
	// Write-one-to-clear at offset 0x10.
	r.Hook = func(r *Regs, off uintptr, v uint32) bool {
		if off != 0x10 {
			return false
		}
		r.Poke(off, r.Read32(off)&^v)
		return true
	}

	r.Poke(0x10, 0xff)
	r.Write32(0x10, 0x0f)
	if got := r.Read32(0x10); got != 0xf0 {
		t.Errorf("Read32(0x10) = %#x, want %#x", got, 0xf0)
	}

	r.Write32(0x4, 7)
	if got := r.Read32(0x4); got != 7 {
		t.Errorf("Read32(0x4) = %d, want 7", got)
	}
	if got := len(r.Writes()); got != 2 {
		t.Errorf("len(Writes()) = %d, want 2", got)
	}
}

func TestCPU_Affinity(t *testing.T) {
	c := NewCPU(8, 4)
	cluster, id := c.Affinity(6)
	if cluster != 1 || id != 2 {
		t.Errorf("Affinity(6) = (%d, %d), want (1, 2)", cluster, id)
	}
}

func TestCPU_NestedMasking(t *testing.T) {
	c := NewCPU(1, 1)
	outer := c.Disable()
	inner := c.Disable()
	c.Restore(inner)
	if !c.Masked() {
		t.Error("Masked() = false after restoring nested state")
	}
	c.Restore(outer)
	if c.Masked() {
		t.Error("Masked() = true after restoring outer state")
	}
}

func TestGICSysRegs_Spurious(t *testing.T) {
	g := &GICSysRegs{}
	g.Raise(40)
	if got := g.ReadIAR1(); got != 40 {
		t.Errorf("ReadIAR1() = %d, want 40", got)
	}
	if got := g.ReadIAR1(); got != SpuriousIAR {
		t.Errorf("ReadIAR1() = %#x, want %#x", got, SpuriousIAR)
	}
}
