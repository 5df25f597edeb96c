package discovery

import "errors"

// Domain errors for discovery operations.
var (
	// ErrScan is the umbrella error for every failed scan.
	ErrScan = errors.New("discovery: scan failed")

	// ErrInvalidSubnet is returned for a subnet that cannot be parsed.
	ErrInvalidSubnet = errors.New("discovery: invalid subnet")

	// ErrSubnetTooLarge is returned when the subnet exceeds the host limit.
	ErrSubnetTooLarge = errors.New("discovery: subnet too large")
)
