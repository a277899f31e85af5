package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/maas-sub008/internal/domain"
	"github.com/canonical/maas-sub008/internal/repository"
	"github.com/canonical/maas-sub008/internal/testutil"
)

func setupAPI(t *testing.T, testName string) (*sql.DB, *httptest.Server) {
	t.Helper()
	db, cleanup := testutil.SetupTestDBWithMigrations(t, testName)

	a := NewAPI(db, "", 0)
	router := chi.NewRouter()
	a.RegisterRoutes(router)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		cleanup()
	})
	return db, server
}

func seedInventory(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()

	domains := repository.NewDomainRepository(db)
	henry, err := domains.Save(ctx, domain.Domain{Name: "henry", Authoritative: true})
	require.NoError(t, err)

	subnets := repository.NewSubnetRepository(db)
	subnet, err := subnets.Save(ctx, domain.Subnet{
		CIDR:     "10.0.0.0/29",
		AllowDNS: true,
		RDNSMode: domain.RDNSModeRFC2317,
	})
	require.NoError(t, err)
	require.NoError(t, subnets.AddDynamicRange(ctx, subnet.ID, domain.IPRange{
		Start: netip.MustParseAddr("10.0.0.2"),
		End:   netip.MustParseAddr("10.0.0.6"),
	}))

	nodes := repository.NewNodeRepository(db)
	node, err := nodes.Save(ctx, domain.Node{
		SystemID: "abc123",
		Hostname: "web01",
		DomainID: henry.ID,
		NodeType: domain.NodeTypeMachine,
	})
	require.NoError(t, err)
	require.NoError(t, nodes.AddAddress(ctx, node.ID, subnet.ID, netip.MustParseAddr("10.0.0.5")))
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestListDomains(t *testing.T) {
	db, server := setupAPI(t, "TestListDomains")
	seedInventory(t, db)

	var domains []DomainResponse
	resp := getJSON(t, server.URL+"/api/v0/domains", &domains)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, domains, 1)
	assert.Equal(t, "henry", domains[0].Name)
	assert.True(t, domains[0].Authoritative)
}

func TestListDomains_EmptyInventory(t *testing.T) {
	_, server := setupAPI(t, "TestListDomainsEmpty")

	var domains []DomainResponse
	resp := getJSON(t, server.URL+"/api/v0/domains", &domains)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, domains)
}

func TestListSubnets(t *testing.T) {
	db, server := setupAPI(t, "TestListSubnets")
	seedInventory(t, db)

	var subnets []SubnetResponse
	resp := getJSON(t, server.URL+"/api/v0/subnets", &subnets)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, subnets, 1)
	assert.Equal(t, "10.0.0.0/29", subnets[0].CIDR)
	assert.True(t, subnets[0].AllowDNS)
	require.Len(t, subnets[0].DynamicRanges, 1)
	assert.Equal(t, "10.0.0.2", subnets[0].DynamicRanges[0].Start)
}

func TestPreviewZones(t *testing.T) {
	db, server := setupAPI(t, "TestPreviewZones")
	seedInventory(t, db)

	var zones []ZoneResponse
	resp := getJSON(t, server.URL+"/api/v0/zones?serial=7", &zones)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// Forward zone, then the /29 reverse zone, then its /24 parent.
	require.Len(t, zones, 3)

	assert.Equal(t, "henry", zones[0].ZoneName)
	assert.Equal(t, uint32(7), zones[0].Serial)
	require.Len(t, zones[0].Records, 1)
	assert.Equal(t, RecordResponse{Name: "web01", TTL: 30, Type: "A", Data: "10.0.0.5"}, zones[0].Records[0])

	assert.Equal(t, "0-29.0.0.10.in-addr.arpa", zones[1].ZoneName)
	require.Len(t, zones[1].Records, 1)
	assert.Equal(t, RecordResponse{Name: "10.0.0.5", TTL: 30, Type: "PTR", Data: "web01.henry"}, zones[1].Records[0])

	assert.Equal(t, "0.0.10.in-addr.arpa", zones[2].ZoneName)
	assert.Empty(t, zones[2].Records)
}

func TestPreviewZones_InvalidSerial(t *testing.T) {
	_, server := setupAPI(t, "TestPreviewZonesInvalidSerial")

	resp := getJSON(t, server.URL+"/api/v0/zones?serial=notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewZones_EmptyInventory(t *testing.T) {
	_, server := setupAPI(t, "TestPreviewZonesEmpty")

	var zones []ZoneResponse
	resp := getJSON(t, server.URL+"/api/v0/zones", &zones)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, zones)
}
