//go:build !linux

package main

import (
	"github.com/ardnew/devcore/irq/gic"
	"github.com/ardnew/devcore/pkg"
)

func physMapper(string) (gic.Mapper, error) { return nil, pkg.ErrNotSupported }
