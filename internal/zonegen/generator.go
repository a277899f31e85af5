package zonegen

import (
	"context"
	"fmt"
	"net/netip"
	"sort"

	"github.com/canonical/maas-sub008/internal/domain"
)

// DefaultTTL is the global default record TTL, used when neither the
// caller nor the domain supplies one.
const DefaultTTL = 30

// DefaultDomainName anchors reverse zones when no domain is supplied.
const DefaultDomainName = "maas"

// MappingProvider supplies the inventory snapshot a generation run works
// from: the known domains and, per domain, the TTL-resolved name to
// address and name to RRset mappings.
type MappingProvider interface {
	Domains(ctx context.Context) ([]domain.Domain, error)
	// HostnameIPMapping returns the address records of one domain, keyed
	// by name relative to the domain ("@" for the apex). defaultTTL is
	// the effective zone TTL to fall back on.
	HostnameIPMapping(ctx context.Context, domainName string, defaultTTL uint32) (map[string]domain.HostnameIPMapping, error)
	// HostnameRRsetMapping returns the non-address records of one domain,
	// keyed the same way.
	HostnameRRsetMapping(ctx context.Context, domainName string, defaultTTL uint32) (map[string]domain.HostnameRRsetMapping, error)
}

// Params are the inputs of one generation run. The first entry of Domains
// is the installation's default domain: reverse zones are anchored under
// it and the controller's own records are injected at its apex.
type Params struct {
	Domains []domain.Domain
	Subnets []domain.Subnet
	// Serial is the caller-owned SOA serial, passed through verbatim.
	Serial uint32
	// DefaultTTL overrides the global default when non-zero.
	DefaultTTL uint32
	// ControllerHost is the name the controller is reachable at, taken
	// from the configured URL. Empty disables self-NS glue.
	ControllerHost  string
	DynamicUpdates  []domain.DynamicDNSUpdate
	InternalDomains []domain.InternalDomain
}

// ZoneGenerator computes the full ordered zone set for one inventory
// snapshot. It is stateless across invocations: one construction is one
// independent computation, safe to run concurrently with others.
type ZoneGenerator struct {
	provider MappingProvider
	resolver AddressResolver
	params   Params
}

// New creates a generator over the given inventory snapshot.
func New(provider MappingProvider, resolver AddressResolver, params Params) *ZoneGenerator {
	return &ZoneGenerator{provider: provider, resolver: resolver, params: params}
}

// GenerateZones computes the ordered zone sequence: internal domains
// first, then declared domains in input order, then reverse zones from
// most specific network to least. Empty inputs yield an empty, non-nil
// result. A failed controller-address resolution fails the whole run.
func (g *ZoneGenerator) GenerateZones(ctx context.Context) ([]ZoneConfig, error) {
	defaultTTL := g.params.DefaultTTL
	if defaultTTL == 0 {
		defaultTTL = DefaultTTL
	}
	defaultName := DefaultDomainName
	if len(g.params.Domains) > 0 {
		defaultName = g.params.Domains[0].Name
	}

	// Controller addresses are resolved at most once per run and shared
	// between apex injection and delegation glue.
	cache := make(resolveCache)
	var resolved []netip.Addr
	controllerAddrs := func(ctx context.Context) ([]netip.Addr, error) {
		if resolved != nil || g.params.ControllerHost == "" {
			return resolved, nil
		}
		addrs, err := ResolveControllerAddresses(
			ctx, g.resolver, g.params.ControllerHost, g.params.Subnets, true, cache)
		if err != nil {
			return nil, err
		}
		resolved = addrs
		return resolved, nil
	}

	zones := make([]ZoneConfig, 0)
	for _, internal := range g.params.InternalDomains {
		zones = append(zones, internalForwardZone(internal, g.params.Serial))
	}

	var all []domain.Domain
	if len(g.params.Domains) > 0 {
		var err error
		all, err = g.provider.Domains(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing domains: %w", err)
		}
	}
	delegation := &delegationResolver{
		provider:        g.provider,
		defaultDomain:   defaultName,
		controllerAddrs: controllerAddrs,
	}

	fqdnMapping := make(map[string]domain.HostnameIPMapping)
	for _, d := range g.params.Domains {
		if !d.Authoritative {
			continue
		}
		zoneTTL := d.TTL
		if zoneTTL == 0 {
			zoneTTL = defaultTTL
		}
		mapping, err := g.provider.HostnameIPMapping(ctx, d.Name, zoneTTL)
		if err != nil {
			return nil, fmt.Errorf("mapping for %q: %w", d.Name, err)
		}
		other, err := g.provider.HostnameRRsetMapping(ctx, d.Name, zoneTTL)
		if err != nil {
			return nil, fmt.Errorf("rrset mapping for %q: %w", d.Name, err)
		}
		if other == nil {
			other = make(map[string]domain.HostnameRRsetMapping)
		}
		if d.Name == defaultName {
			addrs, err := controllerAddrs(ctx)
			if err != nil {
				return nil, err
			}
			injectApexAddresses(other, addrs, zoneTTL)
		}
		if err := delegation.apply(ctx, d, all, zoneTTL, other); err != nil {
			return nil, err
		}
		var updates []domain.DynamicDNSUpdate
		for _, u := range g.params.DynamicUpdates {
			if u.Zone == d.Name {
				updates = append(updates, u)
			}
		}
		zones = append(zones, &ForwardZoneConfig{
			domain:         d.Name,
			serial:         g.params.Serial,
			defaultTTL:     zoneTTL,
			mapping:        mapping,
			otherMapping:   other,
			dynamicUpdates: updates,
		})
		for name, entry := range mapping {
			fqdn := name + "." + d.Name
			if name == "@" {
				fqdn = d.Name
			}
			merged := fqdnMapping[fqdn]
			merged.SystemID = entry.SystemID
			merged.TTL = entry.TTL
			merged.NodeType = entry.NodeType
			merged.IPs = append(merged.IPs, entry.IPs...)
			fqdnMapping[fqdn] = merged
		}
	}

	reverse, err := mergeReverseZones(g.params.Subnets, fqdnMapping, g.params.DynamicUpdates)
	if err != nil {
		return nil, err
	}
	for _, rev := range reverse {
		zones = append(zones, &ReverseZoneConfig{
			domain:         defaultName,
			serial:         g.params.Serial,
			defaultTTL:     defaultTTL,
			network:        rev.network,
			mapping:        rev.mapping,
			dynamicUpdates: rev.updates,
			dynamicRanges:  rev.dynamicRanges,
			rfc2317Ranges:  rev.rfc2317Ranges,
		})
	}
	return zones, nil
}

// internalForwardZone builds a forward zone directly from statically
// declared resources; no provider or delegation logic applies.
func internalForwardZone(internal domain.InternalDomain, serial uint32) *ForwardZoneConfig {
	ttl := internal.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	other := make(map[string]domain.HostnameRRsetMapping)
	for _, resource := range internal.Resources {
		for _, record := range resource.Records {
			appendRR(other, resource.Name, domain.RRData{
				TTL:    ttl,
				RRType: record.RRType,
				RRData: record.RRData,
			})
		}
	}
	return &ForwardZoneConfig{
		domain:       internal.Name,
		serial:       serial,
		defaultTTL:   ttl,
		mapping:      make(map[string]domain.HostnameIPMapping),
		otherMapping: other,
	}
}

// injectApexAddresses adds the controller's own addresses at the zone
// apex unless an address record is already present there.
func injectApexAddresses(other map[string]domain.HostnameRRsetMapping, addrs []netip.Addr, ttl uint32) {
	for _, rr := range other["@"].RRset {
		if rr.RRType == "A" || rr.RRType == "AAAA" {
			return
		}
	}
	for _, ip := range addrs {
		warnLoopback(ip)
		rrtype := "A"
		if !ip.Is4() {
			rrtype = "AAAA"
		}
		appendRR(other, "@", domain.RRData{TTL: ttl, RRType: rrtype, RRData: ip.String()})
	}
}

// AuthoritativeSearchDomains returns the names of all authoritative
// domains, sorted, for resolver search-path configuration.
func AuthoritativeSearchDomains(domains []domain.Domain) []string {
	var names []string
	for _, d := range domains {
		if d.Authoritative {
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)
	return names
}
