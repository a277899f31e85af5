package zonegen

import (
	"context"
	"net/netip"
	"strings"

	"github.com/canonical/maas-sub008/internal/domain"
)

// delegationResolver synthesizes NS and glue records in a parent zone for
// direct child domains, so that a child delegated one label down stays
// resolvable even when its name server lives inside the child (the
// classic bootstrap problem).
type delegationResolver struct {
	provider      MappingProvider
	defaultDomain string
	// controllerAddrs yields the controller's own reachable addresses;
	// used as apex glue when the child is the default domain.
	controllerAddrs func(ctx context.Context) ([]netip.Addr, error)
}

// apply adds delegation entries contributed by parent acting as a parent
// of any direct child in all. Entries accumulate into other under the
// child's top label; glue records under the name-server target's label.
func (r *delegationResolver) apply(ctx context.Context, parent domain.Domain, all []domain.Domain, ttl uint32, other map[string]domain.HostnameRRsetMapping) error {
	for _, child := range all {
		label, ok := directChildLabel(child.Name, parent.Name)
		if !ok {
			continue
		}
		// The controller's canonical name is always a name server for the
		// child; explicitly configured NS targets at the child apex
		// accumulate into the same RRset.
		targets := []string{r.defaultDomain}
		childOther, err := r.provider.HostnameRRsetMapping(ctx, child.Name, ttl)
		if err != nil {
			return err
		}
		for _, rr := range childOther["@"].RRset {
			if rr.RRType == "NS" {
				targets = append(targets, rr.RRData)
			}
		}
		var childMapping map[string]domain.HostnameIPMapping
		for _, target := range targets {
			rdata := target
			glueOwner := ""
			var glueIPs []netip.Addr
			switch {
			case target == child.Name && child.Name == r.defaultDomain:
				// Delegating to the default domain's apex: glue comes from
				// the controller's own resolved addresses.
				addrs, err := r.controllerAddrs(ctx)
				if err != nil {
					return err
				}
				glueOwner = label
				glueIPs = addrs
			case target == child.Name:
				// Delegating to the child's own apex: glue comes from the
				// child's "@" address records, under the child's label in
				// the parent.
				rdata = label
				if childMapping == nil {
					childMapping, err = r.provider.HostnameIPMapping(ctx, child.Name, ttl)
					if err != nil {
						return err
					}
				}
				if entry, ok := childMapping["@"]; ok {
					glueOwner = label
					glueIPs = entry.IPs
				}
			case strings.HasSuffix(target, "."+child.Name):
				// Target inside the child: without glue the resolver could
				// never find it. Owner and rdata come from the child's own
				// address record for the target.
				rel := strings.TrimSuffix(target, "."+child.Name)
				rdata = rel
				if childMapping == nil {
					childMapping, err = r.provider.HostnameIPMapping(ctx, child.Name, ttl)
					if err != nil {
						return err
					}
				}
				if entry, ok := childMapping[rel]; ok {
					glueOwner = rel
					glueIPs = entry.IPs
				}
			}
			appendRR(other, label, domain.RRData{TTL: ttl, RRType: "NS", RRData: rdata})
			for _, ip := range glueIPs {
				rrtype := "A"
				if !ip.Is4() {
					rrtype = "AAAA"
				}
				appendRR(other, glueOwner, domain.RRData{TTL: ttl, RRType: rrtype, RRData: ip.String()})
			}
		}
	}
	return nil
}

// directChildLabel returns the top label of child when child is exactly
// one label below parent ("john.henry" under "henry" gives "john").
func directChildLabel(child, parent string) (string, bool) {
	if !strings.HasSuffix(child, "."+parent) {
		return "", false
	}
	label := strings.TrimSuffix(child, "."+parent)
	if label == "" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}

// appendRR adds a record under a label, skipping exact duplicates.
func appendRR(other map[string]domain.HostnameRRsetMapping, label string, rr domain.RRData) {
	entry := other[label]
	for _, existing := range entry.RRset {
		if existing == rr {
			return
		}
	}
	entry.RRset = append(entry.RRset, rr)
	other[label] = entry
}
