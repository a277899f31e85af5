package domain

import (
	"net/netip"
)

// Domain represents a DNS zone boundary managed by the controller
type Domain struct {
	ID            int64  // Unique identifier
	Name          string // Zone name without trailing dot (e.g. "maas.example.com")
	TTL           uint32 // Per-domain TTL override; 0 means unset
	Authoritative bool   // True if this installation is the source of truth
}

// RDNSMode controls how reverse DNS is generated for a subnet.
type RDNSMode int

const (
	// RDNSModeDisabled excludes the subnet from reverse generation entirely.
	RDNSModeDisabled RDNSMode = iota
	// RDNSModeEnabled generates reverse records only in the zone-sized
	// (/24 or /124) parent zone.
	RDNSModeEnabled
	// RDNSModeRFC2317 additionally emits a classless delegation zone for
	// subnets narrower than /24 (or /124). This is the default.
	RDNSModeRFC2317
)

// Subnet represents an IP network the controller manages
type Subnet struct {
	ID            int64    // Unique identifier
	Name          string   // Subnet name (defaults to the CIDR)
	CIDR          string   // Network in CIDR notation, v4 or v6
	AllowDNS      bool     // Advertise this subnet's addresses as DNS endpoints
	RDNSMode      RDNSMode // Reverse DNS generation mode
	DynamicRanges []IPRange
}

// Prefix parses the subnet CIDR into a canonical netip.Prefix.
func (s Subnet) Prefix() (netip.Prefix, error) {
	p, err := netip.ParsePrefix(s.CIDR)
	if err != nil {
		return netip.Prefix{}, err
	}
	return p.Masked(), nil
}

// IPRange is an inclusive range of addresses inside a subnet.
type IPRange struct {
	Start netip.Addr
	End   netip.Addr
}

// Contains reports whether ip falls inside the range.
func (r IPRange) Contains(ip netip.Addr) bool {
	return r.Start.Compare(ip) <= 0 && ip.Compare(r.End) <= 0
}

// NodeType identifies what kind of machine owns an address record.
type NodeType int

const (
	NodeTypeDefault NodeType = iota
	NodeTypeMachine
	NodeTypeDevice
	NodeTypeRackController
	NodeTypeRegionController
)

// Node is a machine or controller known to the inventory. Its hostname
// plus its domain's name form the FQDN its addresses are published under.
type Node struct {
	ID       int64
	SystemID string // Stable external identifier
	Hostname string
	DomainID int64
	NodeType NodeType
	// AddressTTL overrides the domain TTL for this node's address
	// records; 0 means unset.
	AddressTTL uint32
}

// StaticIPAddress is one address assigned to a node.
type StaticIPAddress struct {
	ID       int64
	NodeID   int64
	SubnetID int64 // 0 when the address is outside every known subnet
	IP       netip.Addr
}

// DNSResource is an operator-declared name inside a domain, carrying
// addresses and/or extra records independent of any node. The name "@"
// addresses the domain apex.
type DNSResource struct {
	ID       int64
	Name     string
	DomainID int64
	// AddressTTL applies to this resource's address records; 0 means
	// unset. It is ignored whenever a node shares the FQDN.
	AddressTTL uint32
}

// DNSData is one non-address record attached to a DNSResource.
type DNSData struct {
	ID            int64
	DNSResourceID int64
	RRType        string
	RRData        string
	TTL           uint32 // 0 means unset
}

// HostnameIPMapping is the resolved set of address records for one name,
// built fresh on every generation run. TTL precedence has already been
// applied by the provider that built it.
type HostnameIPMapping struct {
	SystemID      string // Owning node, if any
	TTL           uint32
	IPs           []netip.Addr
	NodeType      NodeType
	DNSResourceID int64 // Owning dnsresource, if any
}

// RRData is a single non-address resource record: TTL, type and rdata.
type RRData struct {
	TTL    uint32
	RRType string
	RRData string
}

// HostnameRRsetMapping is the resolved set of non-address records for one
// name, built fresh on every generation run.
type HostnameRRsetMapping struct {
	SystemID string
	NodeType NodeType
	RRset    []RRData
}

// Update operations understood by the dynamic-update path.
const (
	UpdateInsert = "INSERT"
	UpdateUpdate = "UPDATE"
	UpdateDelete = "DELETE"
)

// DynamicDNSUpdate is an incremental change to apply to a running zone
// without regenerating the whole zone file. Consumed, never mutated.
type DynamicDNSUpdate struct {
	Operation string // One of UpdateInsert, UpdateUpdate, UpdateDelete
	Name      string // FQDN the update applies to
	Zone      string // Zone the update belongs to
	Rectype   string
	TTL       uint32
	Answer    string
}

// AnswerAsIP parses the update answer as an IP address. Updates whose
// answer is not an address (e.g. CNAME targets) return ok=false.
func (u DynamicDNSUpdate) AnswerAsIP() (netip.Addr, bool) {
	ip, err := netip.ParseAddr(u.Answer)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip, true
}

// InternalDomainResource is one name inside an internal domain together
// with its statically declared records.
type InternalDomainResource struct {
	Name    string
	Records []InternalDomainRecord
}

// InternalDomainRecord is a single statically declared record.
type InternalDomainRecord struct {
	RRType string
	RRData string
}

// InternalDomain is a synthetic forward zone declared by the caller
// rather than derived from the inventory.
type InternalDomain struct {
	Name      string
	TTL       uint32
	Resources []InternalDomainResource
}
