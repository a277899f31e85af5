package zonegen

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLargeSubnet_SplitsIPv4IntoSlash24s(t *testing.T) {
	chunks := SplitLargeSubnet(netip.MustParsePrefix("10.0.0.0/21"))
	require.Len(t, chunks, 8)
	for i, chunk := range chunks {
		expected := netip.MustParsePrefix(
			netip.AddrFrom4([4]byte{10, 0, byte(i), 0}).String() + "/24")
		assert.Equal(t, expected, chunk)
	}
}

func TestSplitLargeSubnet_KeepsZoneSizedNetworks(t *testing.T) {
	tests := []string{"10.0.0.0/24", "192.168.33.0/25", "10.1.2.0/29", "2001:db8::/124"}
	for _, cidr := range tests {
		t.Run(cidr, func(t *testing.T) {
			prefix := netip.MustParsePrefix(cidr)
			chunks := SplitLargeSubnet(prefix)
			require.Len(t, chunks, 1)
			assert.Equal(t, prefix, chunks[0])
		})
	}
}

func TestSplitLargeSubnet_SplitsIPv6IntoSlash124s(t *testing.T) {
	chunks := SplitLargeSubnet(netip.MustParsePrefix("2001:db8::/120"))
	require.Len(t, chunks, 16)
	assert.Equal(t, netip.MustParsePrefix("2001:db8::/124"), chunks[0])
	assert.Equal(t, netip.MustParsePrefix("2001:db8::f0/124"), chunks[15])
}

func TestSplitLargeSubnet_MasksHostBits(t *testing.T) {
	chunks := SplitLargeSubnet(netip.MustParsePrefix("10.0.3.7/22"))
	require.Len(t, chunks, 4)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/24"), chunks[0])
	assert.Equal(t, netip.MustParsePrefix("10.0.3.0/24"), chunks[3])
}

func TestRFC2317Parent(t *testing.T) {
	tests := []struct {
		network string
		parent  string
	}{
		{"192.168.33.0/25", "192.168.33.0/24"},
		{"10.0.0.0/29", "10.0.0.0/24"},
		{"10.0.0.48/28", "10.0.0.0/24"},
		{"2001:db8::8/125", "2001:db8::/124"},
		{"192.168.33.0/24", ""},
		{"10.0.0.0/21", ""},
		{"2001:db8::/124", ""},
	}
	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			parent, ok := RFC2317Parent(netip.MustParsePrefix(tt.network))
			if tt.parent == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, netip.MustParsePrefix(tt.parent), parent)
		})
	}
}
