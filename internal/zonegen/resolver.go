package zonegen

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/netip"
	"slices"

	"github.com/canonical/maas-sub008/internal/domain"
)

// AddressResolver supplies the addresses the controller itself is
// reachable on. This is the only point in the pipeline that can block on
// the network; callers wanting a timeout bound it through ctx.
type AddressResolver interface {
	// ResolveHostname resolves host to addresses of the given IP version
	// (4 or 6). An empty result with a nil error means the host exists
	// but has no address of that version.
	ResolveHostname(ctx context.Context, host string, version int) ([]netip.Addr, error)
}

// NetResolver is the production AddressResolver backed by the system
// resolver.
type NetResolver struct {
	Resolver *net.Resolver
}

func (r NetResolver) ResolveHostname(ctx context.Context, host string, version int) ([]netip.Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		if (version == 4) == ip.Is4() {
			return []netip.Addr{ip}, nil
		}
		return nil, nil
	}
	network := "ip4"
	if version == 6 {
		network = "ip6"
	}
	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupNetIP(ctx, network, host)
	if err != nil {
		if dnsErr, ok := err.(*net.DNSError); ok && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, err
	}
	return addrs, nil
}

// loopbackWarning is logged when the controller resolves to a loopback
// address. A degenerate single-host deployment is assumed, so the record
// is still emitted.
const loopbackWarning = "The DNS server will use the address %q, which is inside the loopback network. This may not be a problem if you're not using the DNS features or you don't rely on this information."

// logf is swapped out by tests capturing the loopback warning.
var logf = log.Printf

func warnLoopback(ip netip.Addr) {
	if ip.IsLoopback() {
		logf(loopbackWarning, ip.String())
	}
}

// resolveCache memoizes hostname resolution for the lifetime of a single
// generation run. It is never shared across runs.
type resolveCache map[string][]netip.Addr

// ResolveControllerAddresses resolves every address the controller is
// reachable on. With filterAllowedDNS set, addresses on subnets declared
// allow_dns=false are dropped; an empty result after filtering is not an
// error. Resolution failure is ErrUnresolvableHost.
func ResolveControllerAddresses(ctx context.Context, resolver AddressResolver, host string, subnets []domain.Subnet, filterAllowedDNS bool, cache resolveCache) ([]netip.Addr, error) {
	if cached, ok := cache[host]; ok {
		return filterAddresses(cached, subnets, filterAllowedDNS), nil
	}
	var addrs []netip.Addr
	var lastErr error
	for _, version := range []int{4, 6} {
		resolved, err := resolver.ResolveHostname(ctx, host, version)
		if err != nil {
			lastErr = err
			continue
		}
		addrs = append(addrs, resolved...)
	}
	if len(addrs) == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnresolvableHost, host, lastErr)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %q has no addresses", ErrUnresolvableHost, host)
	}
	slices.SortFunc(addrs, netip.Addr.Compare)
	addrs = slices.Compact(addrs)
	if cache != nil {
		cache[host] = addrs
	}
	return filterAddresses(addrs, subnets, filterAllowedDNS), nil
}

// ResolveControllerAddress picks a single controller address, preferring
// IPv4, for callers that advertise one name server endpoint. ok=false
// (with a nil error) means every candidate lives on a subnet with
// allow_dns=false. The chosen address is checked for loopback, which is
// warned about but not rejected.
func ResolveControllerAddress(ctx context.Context, resolver AddressResolver, host string, subnets []domain.Subnet, ipv4, ipv6 bool) (netip.Addr, bool, error) {
	addrs, err := ResolveControllerAddresses(ctx, resolver, host, subnets, true, make(resolveCache))
	if err != nil {
		return netip.Addr{}, false, err
	}
	var candidates []netip.Addr
	for _, ip := range addrs {
		if (ip.Is4() && ipv4) || (!ip.Is4() && ipv6) {
			candidates = append(candidates, ip)
		}
	}
	if len(candidates) == 0 {
		return netip.Addr{}, false, nil
	}
	chosen := candidates[0]
	for _, ip := range candidates {
		if ip.Is4() {
			chosen = ip
			break
		}
	}
	warnLoopback(chosen)
	return chosen, true, nil
}

// filterAddresses drops addresses living on subnets with allow_dns=false.
// Addresses outside every known subnet are kept.
func filterAddresses(addrs []netip.Addr, subnets []domain.Subnet, filterAllowedDNS bool) []netip.Addr {
	if !filterAllowedDNS {
		return slices.Clone(addrs)
	}
	var kept []netip.Addr
	for _, ip := range addrs {
		allowed := true
		for _, subnet := range subnets {
			prefix, err := subnet.Prefix()
			if err != nil {
				continue
			}
			if prefix.Contains(ip) && !subnet.AllowDNS {
				allowed = false
				break
			}
		}
		if allowed {
			kept = append(kept, ip)
		}
	}
	return kept
}
