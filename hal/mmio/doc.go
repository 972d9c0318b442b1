// Package mmio maps physical register ranges on Linux through /dev/mem.
//
// It is used by the devcore command when running on a real board under a
// Linux host kernel, for example to poke a distributor that the host has
// left to user space. Accesses use atomic loads and stores so that each
// register access is a single bus transaction.
package mmio
