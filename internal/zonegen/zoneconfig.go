package zonegen

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"

	"github.com/canonical/maas-sub008/internal/domain"
)

// ZoneConfig is one generated zone, ready for external rendering. The
// concrete type is either *ForwardZoneConfig or *ReverseZoneConfig.
// Configs are value objects: callers must not mutate the maps or slices
// they expose.
type ZoneConfig interface {
	// DomainName is the name of the domain owning the zone.
	DomainName() string
	// ZoneName is the name the zone is served under. For forward zones
	// this equals DomainName; for reverse zones it is the in-addr.arpa
	// or ip6.arpa name derived from the network.
	ZoneName() string
	Serial() uint32
	DefaultTTL() uint32
	DynamicUpdates() []domain.DynamicDNSUpdate
}

// ForwardZoneConfig is the final state of one forward (name to address)
// zone.
type ForwardZoneConfig struct {
	domain         string
	serial         uint32
	defaultTTL     uint32
	mapping        map[string]domain.HostnameIPMapping
	otherMapping   map[string]domain.HostnameRRsetMapping
	dynamicUpdates []domain.DynamicDNSUpdate
}

func (z *ForwardZoneConfig) DomainName() string { return z.domain }
func (z *ForwardZoneConfig) ZoneName() string   { return z.domain }
func (z *ForwardZoneConfig) Serial() uint32     { return z.serial }
func (z *ForwardZoneConfig) DefaultTTL() uint32 { return z.defaultTTL }

// Mapping is the address record set, keyed by name relative to the zone.
func (z *ForwardZoneConfig) Mapping() map[string]domain.HostnameIPMapping { return z.mapping }

// OtherMapping is the non-address record set, keyed by name relative to
// the zone ("@" for the apex).
func (z *ForwardZoneConfig) OtherMapping() map[string]domain.HostnameRRsetMapping {
	return z.otherMapping
}

func (z *ForwardZoneConfig) DynamicUpdates() []domain.DynamicDNSUpdate { return z.dynamicUpdates }

// ReverseZoneConfig is the final state of one reverse (address to name)
// zone, scoped to a single network.
type ReverseZoneConfig struct {
	domain         string
	serial         uint32
	defaultTTL     uint32
	network        netip.Prefix
	mapping        map[string]domain.HostnameIPMapping
	dynamicUpdates []domain.DynamicDNSUpdate
	dynamicRanges  []domain.IPRange
	rfc2317Ranges  []netip.Prefix
}

func (z *ReverseZoneConfig) DomainName() string   { return z.domain }
func (z *ReverseZoneConfig) ZoneName() string     { return ReverseZoneName(z.network) }
func (z *ReverseZoneConfig) Serial() uint32       { return z.serial }
func (z *ReverseZoneConfig) DefaultTTL() uint32   { return z.defaultTTL }
func (z *ReverseZoneConfig) Network() netip.Prefix { return z.network }

// Mapping is the address record set assigned to this network, keyed by
// FQDN.
func (z *ReverseZoneConfig) Mapping() map[string]domain.HostnameIPMapping { return z.mapping }

func (z *ReverseZoneConfig) DynamicUpdates() []domain.DynamicDNSUpdate { return z.dynamicUpdates }

// DynamicRanges are the dynamic allocation ranges that fall inside this
// network.
func (z *ReverseZoneConfig) DynamicRanges() []domain.IPRange { return z.dynamicRanges }

// RFC2317Ranges are the classless child networks delegated out of this
// zone via RFC 2317 CNAME pointers.
func (z *ReverseZoneConfig) RFC2317Ranges() []netip.Prefix { return z.rfc2317Ranges }

// ReverseZoneName computes the name of the reverse zone serving the given
// network. Octet-aligned (or nibble-aligned for IPv6) networks drop the
// host part of the reverse name; classless networks get the RFC 2317
// style "<octet>-<prefixlen>" first label, e.g. 192.168.33.0/25 becomes
// "0-25.33.168.192.in-addr.arpa".
func ReverseZoneName(network netip.Prefix) string {
	network = network.Masked()
	first := network.Addr()
	rev, err := dns.ReverseAddr(first.String())
	if err != nil {
		return ""
	}
	rev = strings.TrimSuffix(rev, ".")
	var drop int
	if first.Is4() {
		drop = (32 - network.Bits() + 7) / 8
	} else {
		drop = (128 - network.Bits() + 3) / 4
	}
	// A /32 (or /128) network still cuts the zone one label up: the host
	// label is dropped here and replaced by the classless label below.
	if drop == 0 {
		drop = 1
	}
	labels := strings.SplitN(rev, ".", drop+1)
	name := labels[len(labels)-1]
	switch {
	case first.Is4() && network.Bits() > 24:
		name = fmt.Sprintf("%d-%d.%s", first.As4()[3], network.Bits(), name)
	case !first.Is4() && network.Bits() > 124:
		name = fmt.Sprintf("%x-%d.%s", first.As16()[15]&0x0f, network.Bits(), name)
	}
	return name
}

// AsReverseRecordUpdate rewrites a forward dynamic update as the matching
// PTR change scoped to one reverse network. ok=false means the update's
// answer is not an address inside the network.
func AsReverseRecordUpdate(u domain.DynamicDNSUpdate, network netip.Prefix) (domain.DynamicDNSUpdate, bool) {
	ip, ok := u.AnswerAsIP()
	if !ok || !network.Contains(ip) {
		return domain.DynamicDNSUpdate{}, false
	}
	rev, err := dns.ReverseAddr(ip.String())
	if err != nil {
		return domain.DynamicDNSUpdate{}, false
	}
	return domain.DynamicDNSUpdate{
		Operation: u.Operation,
		Name:      strings.TrimSuffix(rev, "."),
		Zone:      ReverseZoneName(network),
		Rectype:   "PTR",
		TTL:       u.TTL,
		Answer:    u.Name,
	}, true
}
