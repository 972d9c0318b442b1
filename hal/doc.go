// Package hal defines the Hardware Abstraction Layer consumed by the device
// core.
//
// The HAL is the only place where the interrupt controller driver, the
// circular buffers and the trace log touch hardware. Platform code supplies
// implementations; the [sim] package provides an in-memory platform for
// tests and for running the core as an ordinary process.
//
// # Interface Overview
//
//   - [Registers]: a memory-mapped register window (distributor,
//     redistributor, peripheral blocks)
//   - [CPU]: topology queries and local interrupt masking
//   - [Cache]: data cache clean and invalidate for buffers shared with
//     hardware masters
//   - [GICSysRegs]: the GICv3 CPU interface system registers
//
// # Implementing a HAL
//
// Register accesses must be single-copy atomic. Implementations backed by
// real memory should map the window uncached; see the mmio package for a
// Linux /dev/mem implementation.
//
// [sim]: github.com/ardnew/devcore/hal/sim
package hal
