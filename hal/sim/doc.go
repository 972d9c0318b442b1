// Package sim implements the hal interfaces in ordinary memory.
//
// It backs the unit tests of the interrupt, buffer and trace packages and
// lets the devcore command run a whole platform bring-up as a normal
// process. Nothing here touches real hardware.
package sim
