package prof

import (
	"fmt"

	"github.com/ardnew/devcore/pkg"
)

// Profiling errors.
var (
	ErrCPUProfileActive = fmt.Errorf("cpu profile already active: %w", pkg.ErrBusy)
	ErrInvalidProfile   = fmt.Errorf("invalid profile: %w", pkg.ErrInvalidArgs)
)

// Profile names a pprof profile.
type Profile string

// Profiles.
const (
	ProfileCPU       Profile = "cpu"
	ProfileHeap      Profile = "heap"
	ProfileAllocs    Profile = "allocs"
	ProfileGoroutine Profile = "goroutine"
	ProfileBlock     Profile = "block"
	ProfileMutex     Profile = "mutex"
)

// String returns the string representation of the profile.
func (p Profile) String() string { return string(p) }

// Options selects what [Start] collects.
type Options struct {
	// CPUProfile is written from Start until the returned stop function
	// runs.
	CPUProfile string

	// HeapProfile is written when the stop function runs.
	HeapProfile string

	// BlockRate and MutexFraction enable the block and mutex profiles.
	BlockRate     int
	MutexFraction int
}
