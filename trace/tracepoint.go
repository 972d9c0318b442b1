package trace

import (
	"fmt"
	"slices"
	"sort"

	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/pkg/ksync"
)

// Probe is a function attached to a named tracepoint. Probes are identified
// by pointer, so registering the same *Probe twice on one tracepoint fails.
type Probe struct {
	Name string
	Fn   func(args ...any)
}

type tracepoint struct {
	enabled bool
	probes  []*Probe
}

// Tracepoints is a registry of named tracepoints. A tracepoint exists from
// the first probe registered on it; its initial state comes from that
// registration.
type Tracepoints struct {
	irq  ksync.Interrupts
	lock ksync.SpinLock
	tps  map[string]*tracepoint
}

// NewTracepoints returns an empty registry. irq masks local interrupts
// while the registry lock is held and may be nil.
func NewTracepoints(irq ksync.Interrupts) *Tracepoints {
	return &Tracepoints{irq: irq, tps: make(map[string]*tracepoint)}
}

// Register attaches probe to the tracepoint called name, creating it in
// state enabled if needed.
func (r *Tracepoints) Register(name string, probe *Probe, enabled bool) error {
	if name == "" || probe == nil || probe.Fn == nil {
		return pkg.ErrInvalidArgs
	}
	s := r.lock.LockIRQSave(r.irq)
	defer r.lock.UnlockIRQRestore(r.irq, s)

	tp, ok := r.tps[name]
	if !ok {
		tp = &tracepoint{enabled: enabled}
		r.tps[name] = tp
	}
	if slices.Contains(tp.probes, probe) {
		return fmt.Errorf("tracepoint %s: probe %s: %w", name, probe.Name, pkg.ErrAlreadyExists)
	}
	// Fire may be iterating the old slice.
	tp.probes = append(slices.Clip(tp.probes), probe)
	return nil
}

// SetEnabled turns the tracepoint called name on or off.
func (r *Tracepoints) SetEnabled(name string, enabled bool) error {
	s := r.lock.LockIRQSave(r.irq)
	defer r.lock.UnlockIRQRestore(r.irq, s)

	tp, ok := r.tps[name]
	if !ok {
		return fmt.Errorf("tracepoint %s: %w", name, pkg.ErrNotFound)
	}
	tp.enabled = enabled
	pkg.LogDebug(pkg.ComponentTrace, "tracepoint state", "name", name, "enabled", enabled)
	return nil
}

// Fire calls every probe of the tracepoint called name, in registration
// order, when it is enabled.
func (r *Tracepoints) Fire(name string, args ...any) {
	s := r.lock.LockIRQSave(r.irq)
	var probes []*Probe
	if tp, ok := r.tps[name]; ok && tp.enabled {
		probes = tp.probes
	}
	r.lock.UnlockIRQRestore(r.irq, s)

	for _, p := range probes {
		p.Fn(args...)
	}
}

// TracepointInfo describes a registered tracepoint.
type TracepointInfo struct {
	Name    string
	Enabled bool
	Probes  []string
}

// String returns a string representation of the tracepoint.
func (i TracepointInfo) String() string {
	return fmt.Sprintf("[%s] active: %t probes: %v", i.Name, i.Enabled, i.Probes)
}

// List returns every tracepoint sorted by name.
func (r *Tracepoints) List() []TracepointInfo {
	s := r.lock.LockIRQSave(r.irq)
	out := make([]TracepointInfo, 0, len(r.tps))
	for name, tp := range r.tps {
		info := TracepointInfo{Name: name, Enabled: tp.enabled}
		for _, p := range tp.probes {
			info.Probes = append(info.Probes, p.Name)
		}
		out = append(out, info)
	}
	r.lock.UnlockIRQRestore(r.irq, s)

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
