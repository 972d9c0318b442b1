package sai

import (
	"testing"

	"github.com/u-root/u-root/pkg/dt"

	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/pkg"
)

// fakeSAI records operations per side.
type fakeSAI struct {
	log      []string
	format   Format
	counters bool
	cb       [2]Callback
}

func (f *fakeSAI) rec(s string) error {
	f.log = append(f.log, s)
	return nil
}

func (f *fakeSAI) TxOpen(*driver.Device) error  { return f.rec("tx-open") }
func (f *fakeSAI) RxOpen(*driver.Device) error  { return f.rec("rx-open") }
func (f *fakeSAI) TxStart(*driver.Device) error { return f.rec("tx-start") }
func (f *fakeSAI) RxStart(*driver.Device) error { return f.rec("rx-start") }
func (f *fakeSAI) TxFlush(*driver.Device) error { return f.rec("tx-flush") }

func (f *fakeSAI) TxSetup(_ *driver.Device, fm *Format) error {
	f.format = *fm
	return f.rec("tx-setup")
}

func (f *fakeSAI) RxCounters(*driver.Device) (Counters, error) {
	if !f.counters {
		return Counters{}, pkg.ErrNotReady
	}
	return Counters{BitCount: 64, BitCountTS: 10, CPUTS: 1 << 40}, nil
}

func (f *fakeSAI) RxEnableCounters(_ *driver.Device, en bool) error {
	f.counters = en
	return nil
}

func (f *fakeSAI) TxSetCallback(_ *driver.Device, cb Callback) error {
	f.cb[0] = cb
	return nil
}

func (f *fakeSAI) RxSetCallback(_ *driver.Device, cb Callback) error {
	f.cb[1] = cb
	return nil
}

func (f *fakeSAI) Write(_ *driver.Device, p []byte) error { return f.rec("write") }

func TestDirectionDispatch(t *testing.T) {
	f := &fakeSAI{}
	dev := &driver.Device{Name: "sai3", Driver: &driver.Driver{Class: Class, Ops: f}}

	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{"Open(TX)", func() error { return Open(dev, TX) }, nil},
		{"Open(RX)", func() error { return Open(dev, RX) }, nil},
		{"Setup(TX)", func() error {
			return Setup(dev, TX, &Format{Protocol: ProtocolI2S, SampleRate: 48000, BitWidth: 32, Channels: 2, Role: Master})
		}, nil},
		{"Setup(RX)", func() error { return Setup(dev, RX, &Format{}) }, pkg.ErrNotSupported},
		{"Start(TX)", func() error { return Start(dev, TX) }, nil},
		{"Start(RX)", func() error { return Start(dev, RX) }, nil},
		{"Flush(TX)", func() error { return Flush(dev, TX) }, nil},
		{"Flush(RX)", func() error { return Flush(dev, RX) }, pkg.ErrNotSupported},
		{"Stop(TX)", func() error { return Stop(dev, TX) }, pkg.ErrNotSupported},
		{"Close(RX)", func() error { return Close(dev, RX) }, pkg.ErrNotSupported},
		{"Write", func() error { return Write(dev, []byte{0}) }, nil},
		{"Read", func() error { return Read(dev, nil) }, pkg.ErrNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err != tt.want {
				t.Errorf("%s error = %v, want %v", tt.name, err, tt.want)
			}
		})
	}

	want := []string{"tx-open", "rx-open", "tx-setup", "tx-start", "rx-start", "tx-flush", "write"}
	if len(f.log) != len(want) {
		t.Fatalf("driver log = %v, want %v", f.log, want)
	}
	for i := range want {
		if f.log[i] != want[i] {
			t.Errorf("driver log[%d] = %s, want %s", i, f.log[i], want[i])
		}
	}
	if f.format.SampleRate != 48000 || f.format.Role != Master {
		t.Errorf("driver format = %+v", f.format)
	}
}

func TestCounters(t *testing.T) {
	f := &fakeSAI{}
	dev := &driver.Device{Name: "sai3", Driver: &driver.Driver{Ops: f}}

	if _, err := GetCounters(dev, RX); err != pkg.ErrNotReady {
		t.Errorf("GetCounters(RX) error = %v, want %v", err, pkg.ErrNotReady)
	}
	if err := EnableCounters(dev, true, RX); err != nil {
		t.Fatalf("EnableCounters(RX) error = %v", err)
	}
	c, err := GetCounters(dev, RX)
	if err != nil || c.BitCount != 64 || c.CPUTS != 1<<40 {
		t.Errorf("GetCounters(RX) = %+v, %v", c, err)
	}
	if _, err := GetCounters(dev, TX); err != pkg.ErrNotSupported {
		t.Errorf("GetCounters(TX) error = %v, want %v", err, pkg.ErrNotSupported)
	}
	if err := EnableCounters(dev, true, TX); err != pkg.ErrNotSupported {
		t.Errorf("EnableCounters(TX) error = %v, want %v", err, pkg.ErrNotSupported)
	}
}

func TestSetCallback(t *testing.T) {
	f := &fakeSAI{}
	dev := &driver.Device{Name: "sai3", Driver: &driver.Driver{Ops: f}}

	var periods uint64
	cb := func(ev Event, param any) int {
		if ev == EventPeriodElapsed {
			periods = param.(*Count).N
		}
		return 0
	}
	if err := SetCallback(dev, cb, RX); err != nil {
		t.Fatalf("SetCallback(RX) error = %v", err)
	}
	if f.cb[0] != nil || f.cb[1] == nil {
		t.Fatalf("callback installed on the wrong side")
	}
	f.cb[1](EventPeriodElapsed, &Count{N: 12})
	if periods != 12 {
		t.Errorf("periods = %d, want 12", periods)
	}
}

func TestDeviceByID(t *testing.T) {
	p := func(name string, v []byte) dt.Property { return dt.Property{Name: name, Value: v} }
	sai := func(name string, busID uint32) *dt.Node {
		return &dt.Node{Name: name, Properties: []dt.Property{
			p("compatible", fdt.Strings("fsl,imx8mn-sai")),
			p("status", fdt.Strings("okay")),
			p("bus-id", fdt.U32(busID)),
		}}
	}
	tree := fdt.New(&dt.Node{
		Properties: []dt.Property{p("#address-cells", fdt.U32(1)), p("#size-cells", fdt.U32(1))},
		Children:   []*dt.Node{sai("sai@30c10000", 1), sai("sai@30c30000", 3)},
	})

	reg := driver.NewRegistry(driver.Options{})
	if err := reg.Register(&driver.Driver{Compatible: "fsl,imx8mn-sai", Class: Class, Ops: &fakeSAI{}}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Populate(tree); err != nil {
		t.Fatalf("Populate() error = %v", err)
	}

	if dev := DeviceByID(reg, 3); dev == nil || dev.Name != "sai@30c30000" {
		t.Errorf("DeviceByID(3) = %v, want sai@30c30000", dev)
	}
	if dev := DeviceByID(reg, 2); dev != nil {
		t.Errorf("DeviceByID(2) = %v, want nil", dev.Name)
	}
}
