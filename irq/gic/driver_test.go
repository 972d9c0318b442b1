package gic

import (
	"context"
	"errors"
	"testing"

	"github.com/u-root/u-root/pkg/dt"

	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/hal/sim"
	"github.com/ardnew/devcore/irq"
	"github.com/ardnew/devcore/pkg"
)

func gicTree(regs ...uint32) *fdt.Blob {
	p := func(name string, v []byte) dt.Property { return dt.Property{Name: name, Value: v} }
	return fdt.New(&dt.Node{
		Properties: []dt.Property{p("#address-cells", fdt.U32(1)), p("#size-cells", fdt.U32(1))},
		Children: []*dt.Node{{
			Name: "interrupt-controller@38800000",
			Properties: []dt.Property{
				p("compatible", fdt.Strings(Compatible)),
				p("status", fdt.Strings("okay")),
				p("reg", fdt.U32(regs...)),
			},
		}},
	})
}

func TestDriver(t *testing.T) {
	tests := []struct {
		name     string
		regs     []uint32
		wantBase uint64
		wantSize int
		wantErr  error
	}{
		{
			name:     "distributor first",
			regs:     []uint32{0x38800000, 0x10000, 0x38880000, 0x80000},
			wantBase: 0x38800000,
			wantSize: 0x100000,
		},
		{
			name:    "missing redistributor",
			regs:    []uint32{0x38800000, 0x10000},
			wantErr: pkg.ErrNotValid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := sim.NewCPU(4, 2)
			mgr := irq.NewManager(cpu)
			var (
				gotBase uint64
				gotSize int
			)
			drv := Driver(Platform{
				Manager: mgr,
				Sys:     &sim.GICSysRegs{},
				CPU:     cpu,
				Map: func(base uint64, size int) (hal.Registers, error) {
					gotBase, gotSize = base, size
					r := sim.NewRegs(size, false)
					r.Poke(gicdPIDR2, revGICv3<<4)
					r.Poke(gicdTYPER, 2<<19|1<<5)
					return r, nil
				},
			})

			reg := driver.NewRegistry(driver.Options{Interrupts: cpu})
			if err := reg.Register(drv); err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			if err := reg.Populate(gicTree(tt.regs...)); err != nil {
				t.Fatalf("Populate() error = %v", err)
			}
			err := reg.InitAll(context.Background(), driver.LevelAll)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("InitAll() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("InitAll() error = %v", err)
			}
			if gotBase != tt.wantBase || gotSize != tt.wantSize {
				t.Errorf("Map(%#x, %#x), want Map(%#x, %#x)", gotBase, gotSize, tt.wantBase, tt.wantSize)
			}
			devs := reg.Devices()
			if len(devs) != 1 {
				t.Fatalf("Devices() = %d, want 1", len(devs))
			}
			g, ok := devs[0].State.(*GIC)
			if !ok {
				t.Fatalf("State = %T, want *GIC", devs[0].State)
			}
			if g.cfg.GICROffset != 0x80000 || g.cfg.GICRStride != DefaultStride {
				t.Errorf("Config = %+v, want GICROffset 0x80000 and default stride", g.cfg)
			}
			if mgr.Controller() != irq.Controller(g) {
				t.Errorf("Controller() = %T, want the bound GIC", mgr.Controller())
			}
		})
	}
}

func TestDriver_Unconfigured(t *testing.T) {
	drv := Driver(Platform{})
	init := drv.Ops.(driver.Initializer)
	if err := init.Init(context.Background(), &driver.Device{Config: &driver.Config{}}); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Init() error = %v, want %v", err, pkg.ErrNotConfigured)
	}
}
