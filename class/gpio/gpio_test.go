package gpio

import (
	"errors"
	"sync"
	"testing"

	"github.com/u-root/u-root/pkg/dt"
	pgpio "periph.io/x/conn/v3/gpio"

	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/pkg"
)

// fakeGPIO is a controller with 32 pins held in memory. Pin 31 reads as
// invalid.
type fakeGPIO struct {
	mu        sync.Mutex
	level     [32]int
	output    [32]bool
	openDrain [32]int
	labels    map[uint]string
}

func (g *fakeGPIO) Request(_ *driver.Device, nr uint, label string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.labels == nil {
		g.labels = map[uint]string{}
	}
	if _, ok := g.labels[nr]; ok {
		return pkg.ErrBusy
	}
	g.labels[nr] = label
	return nil
}

func (g *fakeGPIO) Free(_ *driver.Device, nr uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.labels, nr)
	return nil
}

func (g *fakeGPIO) DirectionInput(_ *driver.Device, nr uint) error {
	g.output[nr] = false
	return nil
}

func (g *fakeGPIO) DirectionOutput(_ *driver.Device, nr uint, v int) error {
	g.output[nr], g.level[nr] = true, v
	return nil
}

func (g *fakeGPIO) GetValue(_ *driver.Device, nr uint) int {
	if nr == 31 {
		return -1
	}
	return g.level[nr]
}

func (g *fakeGPIO) SetValue(_ *driver.Device, nr uint, v int) error {
	g.level[nr] = v
	return nil
}

func (g *fakeGPIO) GetOpenDrain(_ *driver.Device, nr uint) int {
	if nr == 31 {
		return -1
	}
	return g.openDrain[nr]
}

func (g *fakeGPIO) SetOpenDrain(_ *driver.Device, nr uint, v int) int {
	if nr == 31 {
		return -1
	}
	g.openDrain[nr] = v
	return 0
}

// inputOnly supports reading values and nothing else.
type inputOnly struct{}

func (inputOnly) GetValue(*driver.Device, uint) int { return 1 }

func prop(name string, v []byte) dt.Property { return dt.Property{Name: name, Value: v} }

func testTree() *fdt.Blob {
	return fdt.New(&dt.Node{
		Properties: []dt.Property{
			prop("#address-cells", fdt.U32(1)),
			prop("#size-cells", fdt.U32(1)),
		},
		Children: []*dt.Node{
			{Name: "gpio@30200000", Properties: []dt.Property{
				prop("compatible", fdt.Strings("fsl,imx8mn-gpio")),
				prop("status", fdt.Strings("okay")),
				prop("gpio-controller", nil),
				prop("#gpio-cells", fdt.U32(2)),
				prop("phandle", fdt.U32(0x20)),
			}},
			{Name: "mux@30300000", Properties: []dt.Property{
				prop("compatible", fdt.Strings("fsl,imx8mn-mux")),
				prop("status", fdt.Strings("okay")),
				prop("#gpio-cells", fdt.U32(1)),
				prop("phandle", fdt.U32(0x30)),
			}},
			{Name: "codec@1a", Properties: []dt.Property{
				prop("compatible", fdt.Strings("wlf,wm8524")),
				prop("status", fdt.Strings("okay")),
				prop("reset-gpios", fdt.U32(0x20, 5, uint32(FlagActiveLow))),
				prop("mute-gpios", fdt.U32(0x20, 6, 0)),
				prop("range-gpios", fdt.U32(0x20, 40, 0)),
				prop("mux-gpios", fdt.U32(0x30, 1)),
			}},
		},
	})
}

type bench struct {
	reg   *driver.Registry
	gpios *Registry
	ctrl  *driver.Device
	codec *driver.Device
	fake  *fakeGPIO
}

func newBench(t *testing.T) *bench {
	t.Helper()
	b := &bench{reg: driver.NewRegistry(driver.Options{}), gpios: NewRegistry(nil), fake: &fakeGPIO{}}
	for _, d := range []*driver.Driver{
		{Compatible: "fsl,imx8mn-gpio", Class: Class, Ops: b.fake},
		{Compatible: "fsl,imx8mn-mux", Class: Class, Ops: b.fake},
		{Compatible: "wlf,wm8524", Class: "dac"},
	} {
		if err := b.reg.Register(d); err != nil {
			t.Fatalf("Register(%s) error = %v", d.Compatible, err)
		}
	}
	if err := b.reg.Populate(testTree()); err != nil {
		t.Fatalf("Populate() error = %v", err)
	}
	for _, dev := range b.reg.Devices() {
		switch dev.Name {
		case "gpio@30200000":
			b.ctrl = dev
		case "codec@1a":
			b.codec = dev
		}
	}
	if b.ctrl == nil || b.codec == nil {
		t.Fatalf("Devices() = %v, missing controller or codec", b.reg.Devices())
	}
	b.gpios.Add(b.ctrl, 32)
	return b
}

func TestRegistry_Bases(t *testing.T) {
	r := NewRegistry(nil)
	devs := make([]*driver.Device, 4)
	for i := range devs {
		devs[i] = &driver.Device{Name: string(rune('a' + i))}
	}

	a := r.Add(devs[0], 32)
	b := r.Add(devs[1], 16)
	c := r.Add(devs[2], 8)
	if a.Base != 0 || b.Base != 32 || c.Base != 48 {
		t.Errorf("bases = %d, %d, %d, want 0, 32, 48", a.Base, b.Base, c.Base)
	}
	if ControllerOf(devs[1]) != b {
		t.Errorf("ControllerOf() = %v, want %v", ControllerOf(devs[1]), b)
	}

	r.Remove(b)
	if ControllerOf(devs[1]) != nil {
		t.Errorf("ControllerOf() after Remove = %v, want nil", ControllerOf(devs[1]))
	}
	d := r.Add(devs[3], 4)
	if d.Base != 56 {
		t.Errorf("base after Remove = %d, want 56", d.Base)
	}
	got := r.Controllers()
	if len(got) != 3 || got[0] != a || got[1] != c || got[2] != d {
		t.Errorf("Controllers() = %v, want [a c d]", got)
	}
	if ControllerOf(nil) != nil || ControllerOf(&driver.Device{}) != nil {
		t.Errorf("ControllerOf() of an unregistered device is not nil")
	}
}

func TestRegistry_Remove(t *testing.T) {
	b := newBench(t)
	d := &Desc{Dev: b.ctrl, Nr: 3}
	if _, err := GetValue(d); err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}

	b.gpios.Remove(ControllerOf(b.ctrl))
	if c := ControllerOf(b.ctrl); c != nil {
		t.Errorf("ControllerOf() after Remove = %v, want nil", c)
	}
	if _, err := GetValue(d); !errors.Is(err, pkg.ErrNotReady) {
		t.Errorf("GetValue() after Remove error = %v, want %v", err, pkg.ErrNotReady)
	}
	if err := SetValue(d, 1); !errors.Is(err, pkg.ErrNotReady) {
		t.Errorf("SetValue() after Remove error = %v, want %v", err, pkg.ErrNotReady)
	}
	if n := len(b.gpios.Controllers()); n != 0 {
		t.Errorf("Controllers() after Remove = %d entries, want 0", n)
	}

	// A controller unknown to the registry leaves its device alone.
	other := NewRegistry(nil).Add(b.codec, 2)
	b.gpios.Remove(other)
	if ControllerOf(b.codec) != other {
		t.Errorf("ControllerOf() after foreign Remove = %v, want %v", ControllerOf(b.codec), other)
	}
}

func TestValue_ActiveLow(t *testing.T) {
	b := newBench(t)
	b.fake.level[3] = 1

	d := &Desc{Dev: b.ctrl, Nr: 3, Flags: FlagActiveLow}
	if v, err := GetValue(d); err != nil || v != 0 {
		t.Errorf("GetValue() = %d, %v, want 0, nil", v, err)
	}
	if err := SetValue(d, 1); err != nil || b.fake.level[3] != 0 {
		t.Errorf("SetValue(1) = %v, controller level = %d, want nil, 0", err, b.fake.level[3])
	}

	d.Flags = 0
	if err := SetValue(d, 5); err != nil || b.fake.level[3] != 1 {
		t.Errorf("SetValue(5) = %v, controller level = %d, want nil, 1", err, b.fake.level[3])
	}
	if v, err := GetValue(d); err != nil || v != 1 {
		t.Errorf("GetValue() = %d, %v, want 1, nil", v, err)
	}
}

func TestDesc_Errors(t *testing.T) {
	b := newBench(t)
	limited := &driver.Device{Name: "in", Driver: &driver.Driver{Ops: inputOnly{}}}
	NewRegistry(nil).Add(limited, 4)
	orphan := &driver.Device{Name: "orphan", Driver: &driver.Driver{Ops: b.fake}}

	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{"out of range", func() error { _, err := GetValue(&Desc{Dev: b.ctrl, Nr: 32}); return err }, pkg.ErrInvalidArgs},
		{"last pin", func() error { return SetValue(&Desc{Dev: b.ctrl, Nr: 30}, 1) }, nil},
		{"invalid read", func() error { _, err := GetValue(&Desc{Dev: b.ctrl, Nr: 31}); return err }, pkg.ErrNotValid},
		{"invalid open drain", func() error { _, err := GetOpenDrain(&Desc{Dev: b.ctrl, Nr: 31}); return err }, pkg.ErrNotValid},
		{"invalid set open drain", func() error { _, err := SetOpenDrain(&Desc{Dev: b.ctrl, Nr: 31}, 1); return err }, pkg.ErrNotValid},
		{"no set value", func() error { return SetValue(&Desc{Dev: limited, Nr: 1}, 1) }, pkg.ErrNotSupported},
		{"no open drain", func() error { _, err := GetOpenDrain(&Desc{Dev: limited, Nr: 1}); return err }, pkg.ErrNotSupported},
		{"no direction", func() error { return SetDirection(&Desc{Dev: limited, Nr: 1, Flags: FlagOutput}) }, pkg.ErrNotSupported},
		{"no controller", func() error { _, err := GetValue(&Desc{Dev: orphan}); return err }, pkg.ErrNotReady},
		{"nil", func() error { return SetDirection(nil) }, pkg.ErrInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenDrain(t *testing.T) {
	b := newBench(t)
	d := &Desc{Dev: b.ctrl, Nr: 9}
	if _, err := SetOpenDrain(d, 1); err != nil {
		t.Fatalf("SetOpenDrain() error = %v", err)
	}
	if v, err := GetOpenDrain(d); err != nil || v != 1 {
		t.Errorf("GetOpenDrain() = %d, %v, want 1, nil", v, err)
	}
}

func TestSetDirection(t *testing.T) {
	b := newBench(t)

	tests := []struct {
		name   string
		flags  Flags
		output bool
		level  int
		want   error
	}{
		{"input", FlagInput, false, 0, nil},
		{"output inactive", FlagOutput, true, 0, nil},
		{"output active", FlagOutput | FlagOutputActive, true, 1, nil},
		{"output active low", FlagOutput | FlagOutputActive | FlagActiveLow, true, 0, nil},
		{"output inactive low", FlagOutput | FlagActiveLow, true, 1, nil},
		{"none", 0, false, 0, pkg.ErrInvalidArgs},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Desc{Dev: b.ctrl, Nr: uint(i), Flags: tt.flags}
			if err := SetDirection(d); err != tt.want {
				t.Fatalf("SetDirection() error = %v, want %v", err, tt.want)
			}
			if b.fake.output[i] != tt.output || b.fake.level[i] != tt.level {
				t.Errorf("controller output = %v level = %d, want %v %d",
					b.fake.output[i], b.fake.level[i], tt.output, tt.level)
			}
		})
	}
}

func TestGetDesc(t *testing.T) {
	b := newBench(t)

	d, err := GetDesc(b.ctrl, fdt.Args{Node: b.ctrl.Node, Args: []uint32{7, uint32(FlagActiveLow)}})
	if err != nil || d.Dev != b.ctrl || d.Nr != 7 || d.Flags != FlagActiveLow {
		t.Errorf("GetDesc() = %+v, %v", d, err)
	}
	d, err = GetDesc(b.ctrl, fdt.Args{Args: []uint32{2}})
	if err != nil || d.Nr != 2 || d.Flags != 0 {
		t.Errorf("GetDesc(1 arg) = %+v, %v", d, err)
	}
	if _, err := GetDesc(b.ctrl, fdt.Args{}); err != pkg.ErrInvalidArgs {
		t.Errorf("GetDesc(no args) error = %v, want %v", err, pkg.ErrInvalidArgs)
	}
	if _, err := GetDesc(&driver.Device{}, fdt.Args{Args: []uint32{1}}); err != pkg.ErrNotConfigured {
		t.Errorf("GetDesc(no driver) error = %v, want %v", err, pkg.ErrNotConfigured)
	}
}

func TestRequestByName(t *testing.T) {
	b := newBench(t)

	d, err := RequestByName(b.reg, b.codec, "reset-gpios", FlagOutput|FlagOutputActive)
	if err != nil {
		t.Fatalf("RequestByName(reset-gpios) error = %v", err)
	}
	if d.Dev != b.ctrl || d.Nr != 5 {
		t.Errorf("desc = %+v, want pin 5 of %s", d, b.ctrl.Name)
	}
	want := FlagRequested | FlagOutput | FlagOutputActive | FlagActiveLow
	if d.Flags != want {
		t.Errorf("flags = %#x, want %#x", d.Flags, want)
	}
	if b.fake.labels[5] != "reset-gpios" {
		t.Errorf("label = %q, want reset-gpios", b.fake.labels[5])
	}
	if !b.fake.output[5] || b.fake.level[5] != 0 {
		t.Errorf("pin 5 output = %v level = %d, want true 0", b.fake.output[5], b.fake.level[5])
	}

	if _, err := RequestByName(b.reg, b.codec, "reset-gpios", 0); !errors.Is(err, pkg.ErrBusy) {
		t.Errorf("second RequestByName() error = %v, want %v", err, pkg.ErrBusy)
	}
	if err := Free(&d); err != nil || d.Flags&FlagRequested != 0 {
		t.Errorf("Free() = %v, flags = %#x", err, d.Flags)
	}
	if _, ok := b.fake.labels[5]; ok {
		t.Errorf("pin 5 still requested after Free()")
	}

	in, err := RequestByName(b.reg, b.codec, "mute-gpios", FlagInput)
	if err != nil || in.Nr != 6 || b.fake.output[6] {
		t.Errorf("RequestByName(mute-gpios) = %+v, %v", in, err)
	}

	tests := []struct {
		prop string
		want error
	}{
		{"missing-gpios", pkg.ErrInvalidArgs},
		{"range-gpios", pkg.ErrInvalidArgs},
		{"mux-gpios", pkg.ErrNotFound},
	}
	for _, tt := range tests {
		if _, err := RequestByName(b.reg, b.codec, tt.prop, 0); !errors.Is(err, tt.want) {
			t.Errorf("RequestByName(%s) error = %v, want %v", tt.prop, err, tt.want)
		}
	}
}

func TestPin(t *testing.T) {
	b := newBench(t)
	second := &driver.Device{Name: "gpio2", Driver: &driver.Driver{Ops: &fakeGPIO{}}}
	b.gpios.Add(second, 32)

	p := NewPin("LED", Desc{Dev: second, Nr: 4})
	if p.Number() != 36 {
		t.Errorf("Number() = %d, want 36", p.Number())
	}
	if p.String() != "LED" || p.Function() != "" {
		t.Errorf("String() = %q, Function() = %q", p.String(), p.Function())
	}

	if err := p.Out(pgpio.High); err != nil {
		t.Fatalf("Out(High) error = %v", err)
	}
	fake := second.Ops().(*fakeGPIO)
	if !fake.output[4] || fake.level[4] != 1 || p.Function() != "Out" {
		t.Errorf("after Out(High): output = %v level = %d function = %q", fake.output[4], fake.level[4], p.Function())
	}
	if err := p.Out(pgpio.Low); err != nil || fake.level[4] != 0 {
		t.Errorf("Out(Low) = %v, level = %d", err, fake.level[4])
	}

	if err := p.In(pgpio.PullUp, pgpio.NoEdge); !errors.Is(err, pkg.ErrNotSupported) {
		t.Errorf("In(PullUp) error = %v, want %v", err, pkg.ErrNotSupported)
	}
	if err := p.In(pgpio.PullNoChange, pgpio.RisingEdge); !errors.Is(err, pkg.ErrNotSupported) {
		t.Errorf("In(RisingEdge) error = %v, want %v", err, pkg.ErrNotSupported)
	}
	if err := p.In(pgpio.Float, pgpio.NoEdge); err != nil || fake.output[4] || p.Function() != "In" {
		t.Errorf("In(Float) = %v, output = %v, function = %q", err, fake.output[4], p.Function())
	}
	fake.level[4] = 1
	if p.Read() != pgpio.High {
		t.Errorf("Read() = %v, want High", p.Read())
	}
	if err := p.PWM(pgpio.DutyHalf, 0); !errors.Is(err, pkg.ErrNotSupported) {
		t.Errorf("PWM() error = %v, want %v", err, pkg.ErrNotSupported)
	}

	bad := NewPin("bad", Desc{Dev: second, Nr: 31})
	if bad.Read() != pgpio.Low {
		t.Errorf("Read() of an invalid pin = High, want Low")
	}
}
