package zonegen

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/maas-sub008/internal/domain"
)

func TestReverseZoneName(t *testing.T) {
	tests := []struct {
		network string
		name    string
	}{
		{"192.168.0.0/22", "168.192.in-addr.arpa"},
		{"192.168.0.0/24", "0.168.192.in-addr.arpa"},
		{"192.168.33.0/25", "0-25.33.168.192.in-addr.arpa"},
		{"10.0.0.0/29", "0-29.0.0.10.in-addr.arpa"},
		{"10.0.0.5/32", "5-32.0.0.10.in-addr.arpa"},
		{"10.0.0.0/8", "10.in-addr.arpa"},
		{"3ffe:801::/32", "1.0.8.0.e.f.f.3.ip6.arpa"},
		{"2001:db8::/48", "0.0.0.0.8.b.d.0.1.0.0.2.ip6.arpa"},
		{"2001:db8::8/125", "8-125.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.ip6.arpa"},
		{"2001:db8::f/128", "f-128.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.ip6.arpa"},
	}
	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			assert.Equal(t, tt.name, ReverseZoneName(netip.MustParsePrefix(tt.network)))
		})
	}
}

func TestAsReverseRecordUpdate(t *testing.T) {
	update := domain.DynamicDNSUpdate{
		Operation: domain.UpdateInsert,
		Name:      "web01.maas.example.com",
		Zone:      "maas.example.com",
		Rectype:   "A",
		TTL:       60,
		Answer:    "10.0.0.5",
	}
	rev, ok := AsReverseRecordUpdate(update, netip.MustParsePrefix("10.0.0.0/24"))
	require.True(t, ok)
	assert.Equal(t, domain.UpdateInsert, rev.Operation)
	assert.Equal(t, "5.0.0.10.in-addr.arpa", rev.Name)
	assert.Equal(t, "0.0.10.in-addr.arpa", rev.Zone)
	assert.Equal(t, "PTR", rev.Rectype)
	assert.Equal(t, uint32(60), rev.TTL)
	assert.Equal(t, "web01.maas.example.com", rev.Answer)
}

func TestAsReverseRecordUpdate_OutsideNetwork(t *testing.T) {
	update := domain.DynamicDNSUpdate{
		Operation: domain.UpdateDelete,
		Name:      "web01.maas.example.com",
		Rectype:   "A",
		Answer:    "192.168.1.5",
	}
	_, ok := AsReverseRecordUpdate(update, netip.MustParsePrefix("10.0.0.0/24"))
	assert.False(t, ok)
}

func TestAsReverseRecordUpdate_NonAddressAnswer(t *testing.T) {
	update := domain.DynamicDNSUpdate{
		Operation: domain.UpdateInsert,
		Name:      "alias.maas.example.com",
		Rectype:   "CNAME",
		Answer:    "web01.maas.example.com",
	}
	_, ok := AsReverseRecordUpdate(update, netip.MustParsePrefix("10.0.0.0/24"))
	assert.False(t, ok)
}
