package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net/netip"
	"slices"

	"github.com/canonical/maas-sub008/internal/domain"
	"github.com/canonical/maas-sub008/internal/zonegen"
)

var _ zonegen.MappingProvider = (*MappingRepository)(nil)

// MappingRepository builds the per-domain name mappings the zone
// generator consumes. It satisfies zonegen.MappingProvider.
//
// TTL precedence is resolved here, in SQL: a node's address_ttl beats
// the domain ttl, which beats the run's default. A dnsresource's
// address_ttl only applies when no node shares the FQDN; if one does,
// the resource's addresses merge into the node's entry under the node's
// TTL. For extra records, dnsdata ttl beats domain ttl beats default.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Domains returns all known domains in insertion order.
func (r *MappingRepository) Domains(ctx context.Context) ([]domain.Domain, error) {
	return NewDomainRepository(r.db).FindAll(ctx)
}

// HostnameIPMapping returns the address records of one domain, keyed by
// name relative to the domain.
func (r *MappingRepository) HostnameIPMapping(ctx context.Context, domainName string, defaultTTL uint32) (map[string]domain.HostnameIPMapping, error) {
	mapping := make(map[string]domain.HostnameIPMapping)

	rows, err := r.db.QueryContext(ctx, `
		SELECT n.hostname, n.system_id, n.node_type,
		       COALESCE(NULLIF(n.address_ttl, 0), NULLIF(d.ttl, 0), ?) AS ttl,
		       sip.ip
		FROM nodes n
		JOIN domains d ON d.id = n.domain_id
		JOIN static_ip_addresses sip ON sip.node_id = n.id
		WHERE d.name = ?
		ORDER BY n.hostname, sip.ip`, defaultTTL, domainName)
	if err != nil {
		return nil, fmt.Errorf("failed to query node addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hostname, systemID, raw string
		var nodeType int64
		var ttl uint32
		if err := rows.Scan(&hostname, &systemID, &nodeType, &ttl, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan node address: %w", err)
		}
		ip, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid stored address %q: %w", raw, err)
		}
		entry := mapping[hostname]
		entry.SystemID = systemID
		entry.NodeType = domain.NodeType(nodeType)
		entry.TTL = ttl
		entry.IPs = append(entry.IPs, ip)
		mapping[hostname] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node addresses: %w", err)
	}

	// Resource addresses: merged into the node's entry when a node owns
	// the same name, otherwise published under the resource's own TTL.
	resRows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.name,
		       COALESCE(NULLIF(r.address_ttl, 0), NULLIF(d.ttl, 0), ?) AS ttl,
		       rip.ip
		FROM dnsresources r
		JOIN domains d ON d.id = r.domain_id
		JOIN dnsresource_ip_addresses rip ON rip.dnsresource_id = r.id
		WHERE d.name = ?
		ORDER BY r.name, rip.ip`, defaultTTL, domainName)
	if err != nil {
		return nil, fmt.Errorf("failed to query resource addresses: %w", err)
	}
	defer resRows.Close()

	for resRows.Next() {
		var id int64
		var name, raw string
		var ttl uint32
		if err := resRows.Scan(&id, &name, &ttl, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan resource address: %w", err)
		}
		ip, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid stored address %q: %w", raw, err)
		}
		entry, nodeOwned := mapping[name]
		if !nodeOwned {
			entry.DNSResourceID = id
			entry.TTL = ttl
		}
		if !slices.Contains(entry.IPs, ip) {
			entry.IPs = append(entry.IPs, ip)
		}
		mapping[name] = entry
	}
	if err := resRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource addresses: %w", err)
	}

	return mapping, nil
}

// HostnameRRsetMapping returns the non-address records of one domain,
// keyed by name relative to the domain.
func (r *MappingRepository) HostnameRRsetMapping(ctx context.Context, domainName string, defaultTTL uint32) (map[string]domain.HostnameRRsetMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.name, dd.rrtype, dd.rrdata,
		       COALESCE(NULLIF(dd.ttl, 0), NULLIF(d.ttl, 0), ?) AS ttl
		FROM dnsdata dd
		JOIN dnsresources r ON r.id = dd.dnsresource_id
		JOIN domains d ON d.id = r.domain_id
		WHERE d.name = ?
		ORDER BY r.name, dd.id`, defaultTTL, domainName)
	if err != nil {
		return nil, fmt.Errorf("failed to query extra records: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]domain.HostnameRRsetMapping)
	for rows.Next() {
		var name, rrtype, rrdata string
		var ttl uint32
		if err := rows.Scan(&name, &rrtype, &rrdata, &ttl); err != nil {
			return nil, fmt.Errorf("failed to scan extra record: %w", err)
		}
		entry := mapping[name]
		entry.RRset = append(entry.RRset, domain.RRData{TTL: ttl, RRType: rrtype, RRData: rrdata})
		mapping[name] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extra records: %w", err)
	}
	return mapping, nil
}
