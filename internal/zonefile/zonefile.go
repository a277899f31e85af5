// Package zonefile renders generated zone configurations into BIND zone
// file text and maintains the matching named.conf include.
package zonefile

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/miekg/dns"

	"github.com/canonical/maas-sub008/internal/domain"
	"github.com/canonical/maas-sub008/internal/zonegen"
)

// ConfName is the include file listing every generated zone. The
// operator references it from the name server's main configuration.
const ConfName = "named.conf.maas"

// SOA timer values, fixed across all generated zones. Freshness is
// driven by the serial, which the caller owns.
const (
	soaRefresh = 600
	soaRetry   = 1800
	soaExpire  = 604800
)

// Render produces the zone file text for one zone.
func Render(zone zonegen.ZoneConfig) (string, error) {
	switch z := zone.(type) {
	case *zonegen.ForwardZoneConfig:
		return renderForward(z), nil
	case *zonegen.ReverseZoneConfig:
		return renderReverse(z), nil
	default:
		return "", fmt.Errorf("unsupported zone type %T", zone)
	}
}

func header(zone zonegen.ZoneConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "$TTL %d\n", zone.DefaultTTL())
	fmt.Fprintf(&b, "@ %d IN SOA %s. nobody.example.com. (\n", zone.DefaultTTL(), zone.DomainName())
	fmt.Fprintf(&b, "    %010d ; serial\n", zone.Serial())
	fmt.Fprintf(&b, "    %d ; refresh\n", soaRefresh)
	fmt.Fprintf(&b, "    %d ; retry\n", soaRetry)
	fmt.Fprintf(&b, "    %d ; expire\n", soaExpire)
	fmt.Fprintf(&b, "    %d ; nxttl\n", zone.DefaultTTL())
	b.WriteString("    )\n")
	fmt.Fprintf(&b, "@ %d IN NS %s.\n", zone.DefaultTTL(), zone.DomainName())
	return b.String()
}

func renderForward(z *zonegen.ForwardZoneConfig) string {
	var b strings.Builder
	b.WriteString(header(z))

	for _, name := range sortedKeys(z.OtherMapping()) {
		for _, rr := range z.OtherMapping()[name].RRset {
			rdata := rr.RRData
			// Address rdata is emitted verbatim; name-valued rdata is made
			// absolute unless it is already relative to this zone.
			if rr.RRType == "NS" || rr.RRType == "CNAME" || rr.RRType == "MX" {
				if strings.Contains(rdata, ".") && !strings.HasSuffix(rdata, ".") {
					rdata += "."
				}
			}
			fmt.Fprintf(&b, "%s %d IN %s %s\n", name, rr.TTL, rr.RRType, rdata)
		}
	}
	for _, name := range sortedKeys(z.Mapping()) {
		entry := z.Mapping()[name]
		for _, ip := range entry.IPs {
			fmt.Fprintf(&b, "%s %d IN %s %s\n", name, entry.TTL, addressType(ip), ip.String())
		}
	}
	return b.String()
}

func renderReverse(z *zonegen.ReverseZoneConfig) string {
	var b strings.Builder
	b.WriteString(header(z))
	zoneName := z.ZoneName()

	type ptr struct {
		owner string
		ttl   uint32
		fqdn  string
	}
	var ptrs []ptr
	for fqdn, entry := range z.Mapping() {
		for _, ip := range entry.IPs {
			if !z.Network().Contains(ip) {
				continue
			}
			ptrs = append(ptrs, ptr{ptrOwner(ip, z.Network(), zoneName), entry.TTL, fqdn})
		}
	}
	sort.Slice(ptrs, func(i, j int) bool { return ptrs[i].owner < ptrs[j].owner })
	for _, p := range ptrs {
		fmt.Fprintf(&b, "%s %d IN PTR %s.\n", p.owner, p.ttl, p.fqdn)
	}

	for _, r := range z.DynamicRanges() {
		b.WriteString(generatePTRDirective(r, z.Network(), z.DomainName(), z.DefaultTTL()))
	}
	for _, child := range z.RFC2317Ranges() {
		b.WriteString(rfc2317Glue(child, z.DefaultTTL()))
	}
	return b.String()
}

// ptrOwner is the reverse name of ip relative to the zone. Inside a
// classless zone the network no longer aligns with the reverse name
// labels, so the owner is just the final octet or nibble.
func ptrOwner(ip netip.Addr, network netip.Prefix, zoneName string) string {
	if ip.Is4() && network.Bits() > 24 {
		return fmt.Sprintf("%d", ip.As4()[3])
	}
	if !ip.Is4() && network.Bits() > 124 {
		return fmt.Sprintf("%x", ip.As16()[15]&0x0f)
	}
	rev, err := dns.ReverseAddr(ip.String())
	if err != nil {
		return ip.String()
	}
	return strings.TrimSuffix(strings.TrimSuffix(rev, "."), "."+zoneName)
}

// generatePTRDirective emits a $GENERATE covering the part of a dynamic
// range that falls inside the zone's network. Reverse networks are at
// most /24 sized, so the iterated octet is always the last one. IPv6
// dynamic ranges are not expanded; $GENERATE cannot iterate nibbles.
func generatePTRDirective(r domain.IPRange, network netip.Prefix, domainName string, ttl uint32) string {
	if !r.Start.Is4() {
		return ""
	}
	first, last, ok := clampRange(r, network)
	if !ok {
		return ""
	}
	a4 := first.As4()
	hostname := fmt.Sprintf("%d-%d-%d-$", a4[0], a4[1], a4[2])
	return fmt.Sprintf("$GENERATE %d-%d $ %d IN PTR %s.%s.\n",
		a4[3], last.As4()[3], ttl, hostname, domainName)
}

// rfc2317Glue points the parent zone's names for a classless child at
// the child's own zone. IPv4 children use one $GENERATE; IPv6 children
// are at most 8 addresses and are written out explicitly.
func rfc2317Glue(child netip.Prefix, ttl uint32) string {
	child = child.Masked()
	childZone := zonegen.ReverseZoneName(child)
	if child.Addr().Is4() {
		first := int(child.Addr().As4()[3])
		last := first + (1 << (32 - child.Bits())) - 1
		return fmt.Sprintf("$GENERATE %d-%d $ %d IN CNAME $.%s.\n", first, last, ttl, childZone)
	}
	var b strings.Builder
	first := child.Addr().As16()[15] & 0x0f
	count := 1 << (128 - child.Bits())
	for i := 0; i < count; i++ {
		nibble := first + byte(i)
		fmt.Fprintf(&b, "%x %d IN CNAME %x.%s.\n", nibble, ttl, nibble, childZone)
	}
	return b.String()
}

// clampRange intersects a dynamic range with the zone's network,
// returning ok=false when they do not overlap.
func clampRange(r domain.IPRange, network netip.Prefix) (netip.Addr, netip.Addr, bool) {
	first := r.Start
	if network.Addr().Compare(first) > 0 {
		first = network.Addr()
	}
	last := r.End
	if netLast := lastAddr(network); netLast.Compare(last) < 0 {
		last = netLast
	}
	if first.Compare(last) > 0 {
		return netip.Addr{}, netip.Addr{}, false
	}
	return first, last, true
}

func lastAddr(network netip.Prefix) netip.Addr {
	network = network.Masked()
	raw := network.Addr().AsSlice()
	hostBits := len(raw)*8 - network.Bits()
	for i := len(raw) - 1; i >= 0 && hostBits > 0; i-- {
		bits := hostBits
		if bits > 8 {
			bits = 8
		}
		raw[i] |= byte((1 << bits) - 1)
		hostBits -= bits
	}
	out, _ := netip.AddrFromSlice(raw)
	return out
}

func addressType(ip netip.Addr) string {
	if ip.Is4() {
		return "A"
	}
	return "AAAA"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ZoneFilePath is the on-disk location of one zone's file.
func ZoneFilePath(dir, zoneName string) string {
	return filepath.Join(dir, "zone."+zoneName)
}

// WriteZones renders every zone into dir and rewrites the named.conf
// include to match.
func WriteZones(dir string, zones []zonegen.ZoneConfig) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating zone directory: %w", err)
	}
	for _, zone := range zones {
		text, err := Render(zone)
		if err != nil {
			return err
		}
		path := ZoneFilePath(dir, zone.ZoneName())
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing zone %q: %w", zone.ZoneName(), err)
		}
	}
	return WriteNamedConf(dir, zones)
}

// WriteNamedConf writes the include file declaring every zone as a
// master zone backed by its generated file.
func WriteNamedConf(dir string, zones []zonegen.ZoneConfig) error {
	var b strings.Builder
	for _, zone := range zones {
		fmt.Fprintf(&b, "zone %q {\n", zone.ZoneName())
		b.WriteString("    type master;\n")
		fmt.Fprintf(&b, "    file %q;\n", ZoneFilePath(dir, zone.ZoneName()))
		b.WriteString("};\n")
	}
	path := filepath.Join(dir, ConfName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ConfName, err)
	}
	return nil
}
