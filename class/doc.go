// Package class holds the device class families. Each subpackage exposes
// free functions that dispatch to the operations of a driver.Device:
//
//	err := sai.Start(dev, sai.RX)
//
// Driver operations implement only the single-method capability
// interfaces they support. A device with no operations fails with
// pkg.ErrNotConfigured; a missing capability fails with the family's
// fallback error and has no side effect.
package class
