package gpio

import (
	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/pkg/ksync"
)

// Controller is a registered GPIO controller. Base is its offset in the
// global pin numbering space.
type Controller struct {
	Dev   *driver.Device
	Base  uint
	Count uint

	// Private is owned by the controller driver.
	Private any
}

// Registry is the list of registered controllers and the allocator of
// global pin numbers.
type Registry struct {
	irq  ksync.Interrupts
	lock ksync.SpinLock

	ctrls []*Controller
	next  uint
}

// NewRegistry returns an empty registry. irq may be nil.
func NewRegistry(irq ksync.Interrupts) *Registry {
	return &Registry{irq: irq}
}

// Add registers count pins of dev and stores the new controller in
// dev.State. The controller's base follows every pin registered before
// it; bases are never reused after [Registry.Remove].
func (r *Registry) Add(dev *driver.Device, count uint) *Controller {
	c := &Controller{Dev: dev, Count: count}

	s := r.lock.LockIRQSave(r.irq)
	c.Base = r.next
	r.next += count
	r.ctrls = append(r.ctrls, c)
	r.lock.UnlockIRQRestore(r.irq, s)

	dev.State = c
	pkg.LogDebug(pkg.ComponentGPIO, "controller registered",
		"device", dev.Name, "base", c.Base, "count", count)
	return c
}

// Remove unregisters c and detaches it from its device, so descriptors
// naming the device fail with [pkg.ErrNotReady].
func (r *Registry) Remove(c *Controller) {
	s := r.lock.LockIRQSave(r.irq)
	found := false
	for i, ctrl := range r.ctrls {
		if ctrl == c {
			r.ctrls = append(r.ctrls[:i], r.ctrls[i+1:]...)
			found = true
			break
		}
	}
	r.lock.UnlockIRQRestore(r.irq, s)

	if !found || c.Dev == nil {
		return
	}
	if c.Dev.State == c {
		c.Dev.State = nil
	}
	pkg.LogDebug(pkg.ComponentGPIO, "controller removed", "device", c.Dev.Name, "base", c.Base)
}

// Controllers returns the registered controllers in registration order.
func (r *Registry) Controllers() []*Controller {
	s := r.lock.LockIRQSave(r.irq)
	defer r.lock.UnlockIRQRestore(r.irq, s)
	return append([]*Controller(nil), r.ctrls...)
}

// ControllerOf returns the controller registered for dev, or nil.
func ControllerOf(dev *driver.Device) *Controller {
	if dev == nil {
		return nil
	}
	c, _ := dev.State.(*Controller)
	return c
}
