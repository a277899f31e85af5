package zonegen

import (
	"fmt"
	"net/netip"
	"slices"
	"sort"

	"github.com/canonical/maas-sub008/internal/domain"
)

// reverseZoneData is the per-network result of merging the subnet set:
// the record subset assigned to the network, the classless child ranges
// it must carry, and the dynamic updates and ranges scoped to it.
type reverseZoneData struct {
	network       netip.Prefix
	mapping       map[string]domain.HostnameIPMapping
	rfc2317Ranges []netip.Prefix
	dynamicRanges []domain.IPRange
	updates       []domain.DynamicDNSUpdate
}

// mergeReverseZones resolves the full subnet set into the distinct,
// ordered set of reverse-zone networks. Overlapping subnets collapse onto
// the same networks; each address is assigned to the most specific
// emitted network containing it. Networks are ordered most specific
// first, ties broken by ascending network address.
func mergeReverseZones(subnets []domain.Subnet, fqdnMapping map[string]domain.HostnameIPMapping, updates []domain.DynamicDNSUpdate) ([]*reverseZoneData, error) {
	byNetwork := make(map[netip.Prefix]*reverseZoneData)
	ensure := func(n netip.Prefix) *reverseZoneData {
		z, ok := byNetwork[n]
		if !ok {
			z = &reverseZoneData{
				network: n,
				mapping: make(map[string]domain.HostnameIPMapping),
			}
			byNetwork[n] = z
		}
		return z
	}

	for _, subnet := range subnets {
		if subnet.RDNSMode == domain.RDNSModeDisabled {
			continue
		}
		prefix, err := subnet.Prefix()
		if err != nil {
			return nil, fmt.Errorf("subnet %q has an invalid CIDR: %w", subnet.Name, err)
		}
		if parent, ok := RFC2317Parent(prefix); ok {
			// Classless subnet: the zone-sized parent always exists; the
			// subnet's own zone and the delegation pointers only when RFC
			// 2317 generation is on.
			parentZone := ensure(parent)
			if subnet.RDNSMode == domain.RDNSModeRFC2317 {
				ensure(prefix)
				if !slices.Contains(parentZone.rfc2317Ranges, prefix) {
					parentZone.rfc2317Ranges = append(parentZone.rfc2317Ranges, prefix)
				}
			}
		} else {
			for _, chunk := range SplitLargeSubnet(prefix) {
				ensure(chunk)
			}
		}
	}

	// Dynamic ranges follow the most specific network holding their first
	// address. This runs after all networks are collected so that a range
	// inside a classless subnet lands in the classless zone, not the /24.
	for _, subnet := range subnets {
		if subnet.RDNSMode == domain.RDNSModeDisabled {
			continue
		}
		for _, r := range subnet.DynamicRanges {
			if best := mostSpecific(byNetwork, r.Start); best != nil {
				best.dynamicRanges = append(best.dynamicRanges, r)
			}
		}
	}

	// Assign every address to the most specific emitted network.
	for fqdn, entry := range fqdnMapping {
		for _, ip := range entry.IPs {
			best := mostSpecific(byNetwork, ip)
			if best == nil {
				continue
			}
			assigned, ok := best.mapping[fqdn]
			if !ok {
				assigned = entry
				assigned.IPs = nil
			}
			if !slices.Contains(assigned.IPs, ip) {
				assigned.IPs = append(assigned.IPs, ip)
				slices.SortFunc(assigned.IPs, netip.Addr.Compare)
			}
			best.mapping[fqdn] = assigned
		}
	}

	zones := make([]*reverseZoneData, 0, len(byNetwork))
	for _, z := range byNetwork {
		for _, u := range updates {
			if rev, ok := AsReverseRecordUpdate(u, z.network); ok {
				z.updates = append(z.updates, rev)
			}
		}
		slices.SortFunc(z.rfc2317Ranges, comparePrefixes)
		sort.Slice(z.dynamicRanges, func(i, j int) bool {
			return z.dynamicRanges[i].Start.Compare(z.dynamicRanges[j].Start) < 0
		})
		zones = append(zones, z)
	}
	slices.SortFunc(zones, func(a, b *reverseZoneData) int {
		return comparePrefixes(a.network, b.network)
	})
	return zones, nil
}

// mostSpecific picks the longest-prefix network containing ip. Equal
// prefix lengths cannot collide here: two distinct networks of the same
// length never contain the same address, and duplicate subnet
// declarations collapse onto one network during collection.
func mostSpecific(byNetwork map[netip.Prefix]*reverseZoneData, ip netip.Addr) *reverseZoneData {
	var best *reverseZoneData
	for n, z := range byNetwork {
		if !n.Contains(ip) {
			continue
		}
		if best == nil || n.Bits() > best.network.Bits() {
			best = z
		}
	}
	return best
}

// comparePrefixes orders most specific first, then by ascending network
// address.
func comparePrefixes(a, b netip.Prefix) int {
	if a.Bits() != b.Bits() {
		return b.Bits() - a.Bits()
	}
	return a.Addr().Compare(b.Addr())
}
