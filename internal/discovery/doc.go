// Package discovery sweeps a subnet for responsive hosts that are not yet
// in the inventory, and promotes chosen candidates into devices.
//
// A scan is all-or-nothing: it returns the complete candidate list or an
// error wrapping ErrScan, never a partial result. Promotion is a plain
// create; promoting the same candidate twice yields two devices.
package discovery
