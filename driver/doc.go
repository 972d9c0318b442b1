// Package driver binds hardware-description tree nodes to drivers.
//
// A [Registry] owns the driver table and the device list. Drivers are
// registered up front, then [Registry.Populate] walks the tree once and
// creates a [Device] for every enabled node compatible with a driver. Each
// device carries a [Config] parsed from its node: register ranges,
// interrupts, pin-mux states, clocks, PLLs and DMA client channels.
//
//	reg := driver.NewRegistry(driver.Options{})
//	reg.Register(&driver.Driver{
//	    Compatible: "fsl,imx8mn-sai",
//	    Class:      "sai",
//	    Ops:        saiOps,
//	    Level:      driver.LevelPlatform,
//	})
//	reg.Populate(tree)
//	err := reg.InitAll(ctx, driver.LevelAll)
//
// Class packages reach driver operations through [Call] and [CallDir],
// which type-assert [Driver.Ops] to single-method capability interfaces.
package driver
