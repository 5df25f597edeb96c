package discovery

import (
	"fmt"
	"net/netip"
	"strings"
)

// maxHostBits keeps host counts within int64.
const maxHostBits = 62

// ParseSubnet parses a CIDR string without requiring host bits to be zero,
// so "10.0.0.7/24" means 10.0.0.0/24. A bare address is a single host.
func ParseSubnet(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil || addr.Zone() != "" {
			return netip.Prefix{}, fmt.Errorf("%w: %q", ErrInvalidSubnet, s)
		}
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}

	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q", ErrInvalidSubnet, s)
	}
	return p.Masked(), nil
}

// hostRange describes the usable hosts of a prefix: count addresses
// starting at first.
type hostRange struct {
	first netip.Addr
	count int64
}

// usableHosts returns the hosts a sweep should visit.
//
// IPv4 prefixes shorter than /31 exclude the network and broadcast
// addresses; /31 and /32 use every address. IPv6 prefixes shorter than
// /127 exclude the subnet-router anycast (network) address.
func usableHosts(p netip.Prefix) (hostRange, error) {
	addr := p.Addr()
	hostBits := addr.BitLen() - p.Bits()
	if hostBits > maxHostBits {
		return hostRange{}, fmt.Errorf("%w: %s", ErrSubnetTooLarge, p)
	}

	total := int64(1) << hostBits
	r := hostRange{first: addr, count: total}

	switch {
	case addr.Is4() && hostBits >= 2:
		r.first = addr.Next()
		r.count = total - 2
	case addr.Is6() && hostBits >= 2:
		r.first = addr.Next()
		r.count = total - 1
	}
	return r, nil
}

// addrs materialises the range.
func (r hostRange) addrs() []netip.Addr {
	out := make([]netip.Addr, 0, r.count)
	a := r.first
	for range r.count {
		out = append(out, a)
		a = a.Next()
	}
	return out
}
