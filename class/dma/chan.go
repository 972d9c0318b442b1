package dma

import (
	"fmt"

	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/pkg"
)

// RequestChannel allocates the channel that dev's configuration names
// name. An unknown name fails with [pkg.ErrNotFound] before any controller
// is involved; a reference to a node without a device fails with
// [pkg.ErrNotReady].
func RequestChannel(reg *driver.Registry, dev *driver.Device, name string) (*Chan, error) {
	if dev == nil {
		return nil, pkg.ErrInvalidArgs
	}
	cfg := dev.Config.DMAChannelByName(name)
	if cfg == nil {
		return nil, fmt.Errorf("%s: dma channel %q: %w", dev.Name, name, pkg.ErrNotFound)
	}
	var ctrl *driver.Device
	if cfg.Spec.Node != fdt.NotFound {
		ctrl = reg.FindByNode(cfg.Spec.Node)
	}
	if ctrl == nil {
		return nil, fmt.Errorf("%s: dma channel %q: controller: %w", dev.Name, name, pkg.ErrNotReady)
	}
	pkg.LogDebug(pkg.ComponentDMA, "requesting channel", "device", dev.Name, "channel", name, "controller", ctrl.Name)

	ch, err := AllocChannel(ctrl)
	if err == nil && ch == nil {
		err = pkg.ErrNoMemory
	}
	if err != nil {
		pkg.LogWarn(pkg.ComponentDMA, "channel request failed", "device", dev.Name, "channel", name, "error", err)
		return nil, fmt.Errorf("%s: dma channel %q: %w", dev.Name, name, err)
	}
	if ch.DMADevice == nil {
		ch.DMADevice = ctrl
	}
	ch.ClientDevice = dev
	ch.Name = name
	return ch, nil
}

func (ch *Chan) controller() (*driver.Device, error) {
	if ch == nil {
		return nil, pkg.ErrInvalidArgs
	}
	if ch.DMADevice == nil {
		return nil, pkg.ErrNotReady
	}
	return ch.DMADevice, nil
}

// Configure sets the peripheral side of the channel.
func (ch *Chan) Configure(cfg *SlaveConfig) error {
	dev, err := ch.controller()
	if err != nil {
		return err
	}
	if cfg == nil {
		return pkg.ErrInvalidArgs
	}
	return ConfigureSlave(dev, ch, cfg)
}

// PrepCyclic prepares a transfer that repeats over the bufLen bytes at
// physical address buf, signaling every periodLen bytes.
func (ch *Chan) PrepCyclic(buf uint64, bufLen, periodLen int, dir Direction) (*Descriptor, error) {
	dev, err := ch.controller()
	if err != nil {
		return nil, err
	}
	d, err := PrepareCyclic(dev, ch, buf, bufLen, periodLen, dir)
	if err != nil {
		pkg.LogWarn(pkg.ComponentDMA, "cyclic prepare failed", "channel", ch.Name, "direction", dir.String(), "error", err)
		return nil, err
	}
	return d, nil
}

// Submit resets the progress counters of d and hands it to the controller.
func (d *Descriptor) Submit() error {
	if d == nil {
		return pkg.ErrInvalidArgs
	}
	dev, err := d.Chan.controller()
	if err != nil {
		return err
	}
	d.BytesTransferred = 0
	d.PeriodElapsed = 0
	return SubmitDescriptor(dev, d)
}

func (ch *Chan) Pause() error {
	dev, err := ch.controller()
	if err != nil {
		return err
	}
	return PauseChannel(dev, ch)
}

func (ch *Chan) Resume() error {
	dev, err := ch.controller()
	if err != nil {
		return err
	}
	return ResumeChannel(dev, ch)
}

// TerminateSync stops the channel and returns once the controller has.
func (ch *Chan) TerminateSync() error {
	dev, err := ch.controller()
	if err != nil {
		return err
	}
	return Terminate(dev, ch)
}
