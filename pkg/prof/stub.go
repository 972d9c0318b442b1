//go:build !profile

package prof

import (
	"io"

	"github.com/ardnew/devcore/pkg"
)

// Enabled reports whether profiling is compiled in.
const Enabled = false

// Start is a no-op without the "profile" tag.
func Start(Options) (stop func() error, err error) {
	return func() error { return nil }, nil
}

// StartCPU is a no-op without the "profile" tag.
func StartCPU(string) error { return nil }

// StopCPU is a no-op without the "profile" tag.
func StopCPU() {}

// CPUActive always returns false without the "profile" tag.
func CPUActive() bool { return false }

// Write is a no-op without the "profile" tag.
func Write(Profile, string) error { return nil }

// WriteTo is a no-op without the "profile" tag.
func WriteTo(Profile, io.Writer, int) error { return nil }

// Serve fails with [pkg.ErrNotSupported] without the "profile" tag.
func Serve(string) error { return pkg.ErrNotSupported }
