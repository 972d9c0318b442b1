//go:build linux

package main

import (
	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/hal/mmio"
	"github.com/ardnew/devcore/irq/gic"
)

// physMapper maps register windows from the physical memory device at
// path. Windows stay mapped for the life of the process.
func physMapper(path string) (gic.Mapper, error) {
	return func(base uint64, size int) (hal.Registers, error) {
		return mmio.Open(path, base, size)
	}, nil
}
