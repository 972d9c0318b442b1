package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/pkg/ksync"
)

// Options configures a [Registry].
type Options struct {
	// Interrupts masks local interrupts while the registry lock is held.
	// May be nil.
	Interrupts ksync.Interrupts

	// Configurator applies pin, clock and PLL settings. Nil discards them.
	Configurator Configurator

	// InitParallelism bounds how many devices of one level initialize at
	// once. Zero or one initializes them in discovery order.
	InitParallelism int
}

// Board is a fixup applied to every tree node compatible with Compatible
// once target-level devices are up.
type Board struct {
	Name       string
	Compatible string
	Fixup      func(t fdt.Tree, node int)
}

// Registry holds the driver table and the devices discovered from a tree.
type Registry struct {
	opts Options

	lock    ksync.SpinLock
	drivers []*Driver
	devices []*Device
	boards  []Board
	tree    fdt.Tree
	console *Config
}

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Configurator == nil {
		opts.Configurator = nopConfigurator{}
	}
	if opts.InitParallelism < 1 {
		opts.InitParallelism = 1
	}
	return &Registry{opts: opts}
}

// Register adds d to the driver table. A driver already registered for the
// same compatible string is replaced only when d has a higher version;
// otherwise Register fails with [pkg.ErrAlreadyExists].
func (r *Registry) Register(d *Driver) error {
	if d == nil || d.Compatible == "" {
		return pkg.ErrInvalidArgs
	}
	ver := d.Version
	if ver == "" {
		ver = "0.0.0"
	}
	v, err := semver.NewVersion(ver)
	if err != nil {
		return fmt.Errorf("driver %s: version %q: %w", d.Compatible, d.Version, pkg.ErrInvalidArgs)
	}
	d.version = v

	s := r.lock.LockIRQSave(r.opts.Interrupts)
	defer r.lock.UnlockIRQRestore(r.opts.Interrupts, s)

	for i, old := range r.drivers {
		if old.Compatible != d.Compatible {
			continue
		}
		if !v.GreaterThan(old.version) {
			return fmt.Errorf("driver %s %s: %w", d.Compatible, old.version, pkg.ErrAlreadyExists)
		}
		pkg.LogInfo(pkg.ComponentDriver, "driver replaced",
			"compatible", d.Compatible, "old", old.version.String(), "new", v.String())
		r.drivers[i] = d
		return nil
	}
	r.drivers = append(r.drivers, d)
	return nil
}

// Drivers returns the driver table in registration order.
func (r *Registry) Drivers() []*Driver {
	s := r.lock.LockIRQSave(r.opts.Interrupts)
	defer r.lock.UnlockIRQRestore(r.opts.Interrupts, s)
	return append([]*Driver(nil), r.drivers...)
}

// RegisterBoard adds a board fixup.
func (r *Registry) RegisterBoard(b Board) {
	s := r.lock.LockIRQSave(r.opts.Interrupts)
	defer r.lock.UnlockIRQRestore(r.opts.Interrupts, s)
	r.boards = append(r.boards, b)
}

// Tree returns the tree given to [Registry.Populate], or nil.
func (r *Registry) Tree() fdt.Tree {
	s := r.lock.LockIRQSave(r.opts.Interrupts)
	defer r.lock.UnlockIRQRestore(r.opts.Interrupts, s)
	return r.tree
}

func statusOK(t fdt.Tree, off int) bool {
	status, ok := fdt.String(t, off, "status")
	return ok && (status == "okay" || status == "ok")
}

// Populate creates a device for every node with status "okay" or "ok" that
// is compatible with a registered driver. Drivers are matched in
// registration order. Nodes already bound to a device are skipped.
func (r *Registry) Populate(t fdt.Tree) error {
	if t == nil {
		return pkg.ErrInvalidArgs
	}

	s := r.lock.LockIRQSave(r.opts.Interrupts)
	r.tree = t
	r.console = nil
	r.lock.UnlockIRQRestore(r.opts.Interrupts, s)

	for _, drv := range r.Drivers() {
		for off := t.NodeByCompatible(fdt.NotFound, drv.Compatible); off != fdt.NotFound; off = t.NodeByCompatible(off, drv.Compatible) {
			if !statusOK(t, off) || r.FindByNode(off) != nil {
				continue
			}
			name := t.Name(off)
			if name == "" {
				panic(fmt.Sprintf("driver: unnamed node %d compatible with %s", off, drv.Compatible))
			}
			dev := &Device{
				Name:   name,
				Driver: drv,
				Node:   off,
				Config: ParseConfig(t, off),
				tree:   t,
			}
			r.add(dev)
			pkg.LogDebug(pkg.ComponentDriver, "device created", "device", name, "driver", drv.Compatible)
		}
	}
	return nil
}

func (r *Registry) add(dev *Device) {
	s := r.lock.LockIRQSave(r.opts.Interrupts)
	defer r.lock.UnlockIRQRestore(r.opts.Interrupts, s)
	r.devices = append(r.devices, dev)
}

// Devices returns every discovered device in discovery order.
func (r *Registry) Devices() []*Device {
	s := r.lock.LockIRQSave(r.opts.Interrupts)
	defer r.lock.UnlockIRQRestore(r.opts.Interrupts, s)
	return append([]*Device(nil), r.devices...)
}

// FindByNode returns the device bound to tree node off, or nil.
func (r *Registry) FindByNode(off int) *Device {
	s := r.lock.LockIRQSave(r.opts.Interrupts)
	defer r.lock.UnlockIRQRestore(r.opts.Interrupts, s)
	for _, dev := range r.devices {
		if dev.Node == off {
			return dev
		}
	}
	return nil
}

// FindByClassAndID returns the device whose driver serves class and whose
// bus-id equals busID, or nil.
func (r *Registry) FindByClassAndID(class string, busID int) *Device {
	s := r.lock.LockIRQSave(r.opts.Interrupts)
	defer r.lock.UnlockIRQRestore(r.opts.Interrupts, s)
	for _, dev := range r.devices {
		if dev.Config == nil || dev.Driver.Class == "" {
			continue
		}
		if dev.Driver.Class == class && dev.Config.BusID == busID {
			return dev
		}
	}
	return nil
}

// LookupByPhandleProperty returns the device referenced by the phandle
// stored in property prop of dev's node, or nil.
func (r *Registry) LookupByPhandleProperty(dev *Device, prop string) *Device {
	t := dev.Tree()
	if t == nil {
		return nil
	}
	phandle, err := fdt.Uint32(t, dev.Node, prop)
	if err != nil {
		return nil
	}
	node := t.NodeByPhandle(phandle)
	if node == fdt.NotFound {
		return nil
	}
	return r.FindByNode(node)
}

// InitAll initializes devices level by level for every level bit in mask,
// in ascending order. A device is initialized in a level when its driver's
// Level intersects that bit, and at most once per call. Failures are
// logged and collected; they never stop other devices.
func (r *Registry) InitAll(ctx context.Context, mask Level) error {
	devs := r.Devices()
	done := make(map[*Device]bool, len(devs))

	var (
		mu   sync.Mutex
		errs []error
	)
	for bit := LevelCore; bit <= LevelApp; bit <<= 1 {
		if mask&bit == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		pkg.LogInfo(pkg.ComponentDriver, "initializing devices", "level", bit.String())

		var g errgroup.Group
		g.SetLimit(r.opts.InitParallelism)
		for _, dev := range devs {
			if dev.Driver.Level&bit == 0 || done[dev] {
				continue
			}
			done[dev] = true
			g.Go(func() error {
				if err := initDevice(ctx, dev); err != nil {
					pkg.LogWarn(pkg.ComponentDriver, "device init failed",
						"device", dev.Name, "driver", dev.Driver.Compatible, "error", err)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return errors.Join(errs...)
}

// Boot brings the populated tree up in board order: clocks first, then
// the core and platform levels, the target level, the board fixups and
// finally the HAL and application levels. Like [Registry.InitAll], a
// failing stage is logged and collected without stopping later ones.
func (r *Registry) Boot(ctx context.Context) error {
	if r.Tree() == nil {
		return fmt.Errorf("boot before populate: %w", pkg.ErrNotFound)
	}

	r.SetupClocks()
	errs := []error{
		r.InitAll(ctx, LevelCore|LevelPlatformEarly|LevelPlatform),
		r.InitAll(ctx, LevelTarget),
	}
	if err := r.BoardsFixup(); err != nil {
		pkg.LogWarn(pkg.ComponentDriver, "board fixup failed", "error", err)
		errs = append(errs, err)
	}
	errs = append(errs, r.InitAll(ctx, LevelHAL|LevelHALVendor|LevelApp))

	if cfg, err := r.ConsoleConfig(); err == nil && len(cfg.Regs) > 0 {
		pkg.LogDebug(pkg.ComponentDriver, "console", "base", cfg.Regs[0].Base)
	}
	return errors.Join(errs...)
}

func initDevice(ctx context.Context, dev *Device) error {
	init, ok := dev.Ops().(Initializer)
	if !ok {
		return nil
	}
	if err := init.Init(ctx, dev); err != nil {
		return fmt.Errorf("%s (%s): %w", dev.Name, dev.Driver.Compatible, err)
	}
	return nil
}

// BoardsFixup runs every board fixup against its compatible nodes.
func (r *Registry) BoardsFixup() error {
	t := r.Tree()
	if t == nil {
		return pkg.ErrNotFound
	}

	s := r.lock.LockIRQSave(r.opts.Interrupts)
	boards := append([]Board(nil), r.boards...)
	r.lock.UnlockIRQRestore(r.opts.Interrupts, s)

	for _, b := range boards {
		for off := t.NodeByCompatible(fdt.NotFound, b.Compatible); off != fdt.NotFound; off = t.NodeByCompatible(off, b.Compatible) {
			pkg.LogDebug(pkg.ComponentDriver, "board fixup", "board", b.Name, "node", t.Name(off))
			b.Fixup(t, off)
		}
	}
	return nil
}

// ConsoleConfig returns the configuration of the node named by the
// "console" alias. A console node without a device gets a configuration
// parsed on first use.
func (r *Registry) ConsoleConfig() (*Config, error) {
	s := r.lock.LockIRQSave(r.opts.Interrupts)
	cfg, t := r.console, r.tree
	r.lock.UnlockIRQRestore(r.opts.Interrupts, s)

	if cfg != nil {
		return cfg, nil
	}
	if t == nil {
		return nil, pkg.ErrNotFound
	}
	off := fdt.Alias(t, "console")
	if off == fdt.NotFound {
		return nil, fmt.Errorf("console alias: %w", pkg.ErrNotFound)
	}
	if dev := r.FindByNode(off); dev != nil {
		cfg = dev.Config
	} else {
		cfg = ParseConfig(t, off)
	}

	s = r.lock.LockIRQSave(r.opts.Interrupts)
	r.console = cfg
	r.lock.UnlockIRQRestore(r.opts.Interrupts, s)
	return cfg, nil
}
