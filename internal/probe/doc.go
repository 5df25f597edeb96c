// Package probe decides whether a network address is reachable.
//
// A probe short-circuits loopback addresses, then sends a single ICMP echo
// through the system ping binary. When the echo fails, the host's ARP
// table is consulted: a device that answers ARP but drops ICMP is still
// treated as online.
//
// An unreachable host is a normal result with Online false. ErrProbeFailed
// is reserved for probes that could not run at all.
package probe
