package zonegen

import (
	"net/netip"
)

// Reverse DNS zones are partitioned per /24 for IPv4 and per /124 for
// IPv6; anything narrower needs RFC 2317 classless delegation.
func zoneBits(p netip.Prefix) int {
	if p.Addr().Is4() {
		return 24
	}
	return 124
}

// SplitLargeSubnet splits an oversized network into the contiguous set of
// zone-sized (/24 or /124) networks that exactly cover it, in ascending
// network-address order. Networks that are already zone-sized or narrower
// are returned unchanged as a single-element slice.
func SplitLargeSubnet(network netip.Prefix) []netip.Prefix {
	network = network.Masked()
	bits := zoneBits(network)
	if network.Bits() >= bits {
		return []netip.Prefix{network}
	}
	var chunks []netip.Prefix
	addr := network.Addr()
	for network.Contains(addr) {
		chunk := netip.PrefixFrom(addr, bits)
		chunks = append(chunks, chunk)
		next, ok := addrAfterPrefix(chunk)
		if !ok {
			break
		}
		addr = next
	}
	return chunks
}

// RFC2317Parent returns the zone-sized network containing an undersized
// (classless) network, or ok=false when the network is /24 (or /124) or
// wider and needs no classless delegation.
func RFC2317Parent(network netip.Prefix) (netip.Prefix, bool) {
	network = network.Masked()
	bits := zoneBits(network)
	if network.Bits() <= bits {
		return netip.Prefix{}, false
	}
	return netip.PrefixFrom(network.Addr(), bits).Masked(), true
}

// addrAfterPrefix returns the first address past the end of the prefix.
// ok=false means the prefix ends at the top of the address space.
func addrAfterPrefix(p netip.Prefix) (netip.Addr, bool) {
	b := p.Addr().AsSlice()
	hostBits := len(b)*8 - p.Bits()
	add := byte(1) << uint(hostBits%8)
	for i := len(b) - 1 - hostBits/8; i >= 0; i-- {
		sum := uint16(b[i]) + uint16(add)
		b[i] = byte(sum)
		if sum <= 0xff {
			addr, _ := netip.AddrFromSlice(b)
			return addr, true
		}
		add = 1
	}
	return netip.Addr{}, false
}
