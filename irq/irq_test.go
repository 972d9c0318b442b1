package irq

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/hal/sim"
	"github.com/ardnew/devcore/pkg"
)

// mockController accepts every vector below max.
type mockController struct {
	unconfigured
	max    uint
	masked []uint
}

func (c *mockController) IsValid(v uint, _ uint32) bool { return v < c.max }
func (c *mockController) MaxVector() uint               { return c.max }

func (c *mockController) Mask(v uint) error {
	c.masked = append(c.masked, v)
	return nil
}

func newTestManager() *Manager {
	m := NewManager(sim.NewCPU(1, 1))
	m.RegisterController(&mockController{max: MaxVectors})
	return m
}

func TestUnconfigured(t *testing.T) {
	m := NewManager(nil)

	if err := m.RegisterHandler(32, func(any) HandlerReturn { return NoReschedule }, nil); !errors.Is(err, pkg.ErrInvalidArgs) {
		t.Errorf("RegisterHandler() error = %v, want %v", err, pkg.ErrInvalidArgs)
	}
	if err := m.Mask(32); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Mask() error = %v, want %v", err, pkg.ErrNotConfigured)
	}
	if err := m.SendIPI(hal.AllCPUs, IPIReschedule); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("SendIPI() error = %v, want %v", err, pkg.ErrNotConfigured)
	}
	if _, _, err := m.GetConfig(32); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("GetConfig() error = %v, want %v", err, pkg.ErrNotConfigured)
	}
	if got := m.PlatformIRQ(&hal.Frame{}); got != NoReschedule {
		t.Errorf("PlatformIRQ() = %v, want %v", got, NoReschedule)
	}
}

func TestDispatch_ChainOrder(t *testing.T) {
	m := newTestManager()
	var calls []string

	h1 := func(arg any) HandlerReturn {
		calls = append(calls, arg.(string))
		return NoReschedule
	}
	h2 := func(arg any) HandlerReturn {
		calls = append(calls, arg.(string))
		return Reschedule
	}

	if err := m.RegisterHandler(40, h1, "h1"); err != nil {
		t.Fatalf("RegisterHandler(h1) error = %v", err)
	}
	if err := m.RegisterHandler(40, h2, "h2"); err != nil {
		t.Fatalf("RegisterHandler(h2) error = %v", err)
	}

	if got := m.Dispatch(40); got != Reschedule {
		t.Errorf("Dispatch() = %v, want %v", got, Reschedule)
	}
	if want := []string{"h1", "h2"}; !reflect.DeepEqual(calls, want) {
		t.Errorf("handler order = %v, want %v", calls, want)
	}
	if got := m.Handlers(40); got != 2 {
		t.Errorf("Handlers() = %d, want 2", got)
	}
}

func TestDispatch_Empty(t *testing.T) {
	m := newTestManager()
	if got := m.Dispatch(99); got != NoReschedule {
		t.Errorf("Dispatch() on empty vector = %v, want %v", got, NoReschedule)
	}
	if got := m.Dispatch(MaxVectors + 5); got != NoReschedule {
		t.Errorf("Dispatch() out of range = %v, want %v", got, NoReschedule)
	}
}

func TestRegisterHandler_PoolExhausted(t *testing.T) {
	m := newTestManager()
	fn := func(any) HandlerReturn { return NoReschedule }

	// One primary slot plus every chained slot.
	for i := 0; i < MaxChained+1; i++ {
		if err := m.RegisterHandler(50, fn, nil); err != nil {
			t.Fatalf("RegisterHandler() #%d error = %v", i, err)
		}
	}
	if err := m.RegisterHandler(50, fn, nil); !errors.Is(err, pkg.ErrAlreadyBound) {
		t.Errorf("RegisterHandler() error = %v, want %v", err, pkg.ErrAlreadyBound)
	}
	if err := m.RegisterHandler(51, fn, nil); err != nil {
		t.Errorf("RegisterHandler() on fresh vector error = %v", err)
	}
	if err := m.RegisterHandler(51, fn, nil); !errors.Is(err, pkg.ErrAlreadyBound) {
		t.Errorf("RegisterHandler() chained on fresh vector error = %v, want %v", err, pkg.ErrAlreadyBound)
	}
	if got := m.Handlers(50); got != MaxChained+1 {
		t.Errorf("Handlers() = %d, want %d", got, MaxChained+1)
	}
}

func TestRegisterHandler_NilClearsPrimary(t *testing.T) {
	m := newTestManager()
	called := 0
	fn := func(any) HandlerReturn {
		called++
		return NoReschedule
	}

	m.RegisterHandler(70, fn, nil)
	m.RegisterHandler(70, fn, nil)
	m.RegisterHandler(70, nil, nil)

	m.Dispatch(70)
	if called != 1 {
		t.Errorf("handlers called = %d, want 1 (chained only)", called)
	}
}

func TestRegisterHandler_OutOfRange(t *testing.T) {
	m := newTestManager()
	err := m.RegisterHandler(MaxVectors, func(any) HandlerReturn { return NoReschedule }, nil)
	if !errors.Is(err, pkg.ErrInvalidArgs) {
		t.Errorf("RegisterHandler() error = %v, want %v", err, pkg.ErrInvalidArgs)
	}
}

func TestManager_Delegates(t *testing.T) {
	m := NewManager(nil)
	c := &mockController{max: 64}
	m.RegisterController(c)

	if err := m.Mask(33); err != nil {
		t.Fatalf("Mask() error = %v", err)
	}
	if !reflect.DeepEqual(c.masked, []uint{33}) {
		t.Errorf("controller masked = %v, want [33]", c.masked)
	}
	if got := m.MaxVector(); got != 64 {
		t.Errorf("MaxVector() = %d, want 64", got)
	}

	m.RegisterController(nil)
	if err := m.Mask(33); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Mask() after reset error = %v, want %v", err, pkg.ErrNotConfigured)
	}
}
