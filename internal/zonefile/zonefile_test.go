package zonefile

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/maas-sub008/internal/domain"
	"github.com/canonical/maas-sub008/internal/zonegen"
)

type staticProvider struct {
	domains  []domain.Domain
	mappings map[string]map[string]domain.HostnameIPMapping
}

func (p staticProvider) Domains(context.Context) ([]domain.Domain, error) {
	return p.domains, nil
}

func (p staticProvider) HostnameIPMapping(_ context.Context, domainName string, _ uint32) (map[string]domain.HostnameIPMapping, error) {
	m := p.mappings[domainName]
	if m == nil {
		m = make(map[string]domain.HostnameIPMapping)
	}
	return m, nil
}

func (p staticProvider) HostnameRRsetMapping(context.Context, string, uint32) (map[string]domain.HostnameRRsetMapping, error) {
	return make(map[string]domain.HostnameRRsetMapping), nil
}

func buildZones(t *testing.T) []zonegen.ZoneConfig {
	t.Helper()
	domains := []domain.Domain{{Name: "henry", Authoritative: true}}
	subnet := domain.Subnet{
		Name:     "10.0.0.0/29",
		CIDR:     "10.0.0.0/29",
		AllowDNS: true,
		RDNSMode: domain.RDNSModeRFC2317,
		DynamicRanges: []domain.IPRange{{
			Start: netip.MustParseAddr("10.0.0.2"),
			End:   netip.MustParseAddr("10.0.0.6"),
		}},
	}
	provider := staticProvider{
		domains: domains,
		mappings: map[string]map[string]domain.HostnameIPMapping{
			"henry": {
				"web01": {TTL: 30, IPs: []netip.Addr{netip.MustParseAddr("10.0.0.5")}},
				"db01":  {TTL: 60, IPs: []netip.Addr{netip.MustParseAddr("10.0.0.1")}},
			},
		},
	}
	gen := zonegen.New(provider, nil, zonegen.Params{
		Domains: domains,
		Subnets: []domain.Subnet{subnet},
		Serial:  1,
	})
	zones, err := gen.GenerateZones(context.Background())
	require.NoError(t, err)
	require.Len(t, zones, 3)
	return zones
}

func TestRenderForwardZone(t *testing.T) {
	zones := buildZones(t)
	text, err := Render(zones[0])
	require.NoError(t, err)
	assert.Contains(t, text, "$TTL 30\n")
	assert.Contains(t, text, "@ 30 IN SOA henry. nobody.example.com. (\n")
	assert.Contains(t, text, "0000000001 ; serial")
	assert.Contains(t, text, "@ 30 IN NS henry.\n")
	assert.Contains(t, text, "db01 60 IN A 10.0.0.1\n")
	assert.Contains(t, text, "web01 30 IN A 10.0.0.5\n")
}

func TestRenderReverseZone_ClasslessPTRs(t *testing.T) {
	zones := buildZones(t)
	rev := zones[1].(*zonegen.ReverseZoneConfig)
	require.Equal(t, netip.MustParsePrefix("10.0.0.0/29"), rev.Network())
	text, err := Render(rev)
	require.NoError(t, err)
	// Owners inside a classless zone are bare final octets.
	assert.Contains(t, text, "1 60 IN PTR db01.henry.\n")
	assert.Contains(t, text, "5 30 IN PTR web01.henry.\n")
	assert.Contains(t, text, "$GENERATE 2-6 $ 30 IN PTR 10-0-0-$.henry.\n")
}

func TestRenderReverseZone_ParentCarriesRFC2317Glue(t *testing.T) {
	zones := buildZones(t)
	parent := zones[2].(*zonegen.ReverseZoneConfig)
	require.Equal(t, netip.MustParsePrefix("10.0.0.0/24"), parent.Network())
	text, err := Render(parent)
	require.NoError(t, err)
	assert.Contains(t, text, "@ 30 IN SOA henry. nobody.example.com. (\n")
	assert.Contains(t, text, "$GENERATE 0-7 $ 30 IN CNAME $.0-29.0.0.10.in-addr.arpa.\n")
	// The parent holds no PTRs of its own here.
	assert.NotContains(t, text, "IN PTR")
}

func TestPTROwner(t *testing.T) {
	tests := []struct {
		ip      string
		network string
		zone    string
		owner   string
	}{
		{"10.0.0.5", "10.0.0.0/24", "0.0.10.in-addr.arpa", "5"},
		{"192.168.3.5", "192.168.0.0/16", "168.192.in-addr.arpa", "5.3"},
		{"10.0.0.5", "10.0.0.0/29", "0-29.0.0.10.in-addr.arpa", "5"},
		{"2001:db8::7", "2001:db8::/124", "0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.ip6.arpa", "7"},
		{"2001:db8::b", "2001:db8::8/125", "8-125.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.ip6.arpa", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.ip+" in "+tt.network, func(t *testing.T) {
			owner := ptrOwner(
				netip.MustParseAddr(tt.ip), netip.MustParsePrefix(tt.network), tt.zone)
			assert.Equal(t, tt.owner, owner)
		})
	}
}

func TestRFC2317Glue_IPv6ChildWrittenExplicitly(t *testing.T) {
	text := rfc2317Glue(netip.MustParsePrefix("2001:db8::8/125"), 30)
	childZone := zonegen.ReverseZoneName(netip.MustParsePrefix("2001:db8::8/125"))
	assert.Contains(t, text, "8 30 IN CNAME 8."+childZone+".\n")
	assert.Contains(t, text, "f 30 IN CNAME f."+childZone+".\n")
	assert.Len(t, strings.Split(strings.TrimSuffix(text, "\n"), "\n"), 8)
}

func TestClampRange(t *testing.T) {
	r := domain.IPRange{
		Start: netip.MustParseAddr("10.0.0.2"),
		End:   netip.MustParseAddr("10.0.1.200"),
	}
	first, last, ok := clampRange(r, netip.MustParsePrefix("10.0.1.0/24"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("10.0.1.0"), first)
	assert.Equal(t, netip.MustParseAddr("10.0.1.200"), last)

	_, _, ok = clampRange(r, netip.MustParsePrefix("10.0.5.0/24"))
	assert.False(t, ok)
}

func TestWriteZones(t *testing.T) {
	dir := t.TempDir()
	zones := buildZones(t)
	require.NoError(t, WriteZones(dir, zones))

	for _, name := range []string{
		"zone.henry",
		"zone.0-29.0.0.10.in-addr.arpa",
		"zone.0.0.10.in-addr.arpa",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	conf, err := os.ReadFile(filepath.Join(dir, ConfName))
	require.NoError(t, err)
	assert.Contains(t, string(conf), "zone \"henry\" {")
	assert.Contains(t, string(conf), "type master;")
	assert.Contains(t, string(conf), ZoneFilePath(dir, "henry"))
}
