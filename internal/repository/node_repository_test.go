package repository

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/canonical/maas-sub008/internal/domain"
	"github.com/canonical/maas-sub008/internal/testutil"
)

func saveTestDomain(t *testing.T, repo DomainRepository, name string) domain.Domain {
	t.Helper()
	d, err := repo.Save(context.Background(), domain.Domain{Name: name, Authoritative: true})
	if err != nil {
		t.Fatalf("Failed to save domain %s: %v", name, err)
	}
	return d
}

func TestNodeRepository_Save(t *testing.T) {
	db, cleanup := testutil.SetupTestDBWithMigrations(t, "TestNodeRepository_Save")
	defer cleanup()

	d := saveTestDomain(t, NewDomainRepository(db), "henry")
	repo := NewNodeRepository(db)

	saved, err := repo.Save(context.Background(), domain.Node{
		SystemID: "abc123",
		Hostname: "web01",
		DomainID: d.ID,
		NodeType: domain.NodeTypeMachine,
	})
	if err != nil {
		t.Fatalf("Failed to save node: %v", err)
	}
	if saved.ID == 0 {
		t.Error("Expected node ID to be set")
	}

	saved.AddressTTL = 90
	if _, err := repo.Save(context.Background(), saved); err != nil {
		t.Fatalf("Failed to update node: %v", err)
	}

	found, err := repo.FindBySystemID(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Failed to find node: %v", err)
	}
	if found.AddressTTL != 90 {
		t.Errorf("Expected AddressTTL 90, got %d", found.AddressTTL)
	}
}

func TestNodeRepository_SaveValidation(t *testing.T) {
	db, cleanup := testutil.SetupTestDBWithMigrations(t, "TestNodeRepository_SaveValidation")
	defer cleanup()

	repo := NewNodeRepository(db)
	cases := []domain.Node{
		{Hostname: "web01", DomainID: 1},
		{SystemID: "abc123", DomainID: 1},
		{SystemID: "abc123", Hostname: "web01"},
	}
	for _, n := range cases {
		if _, err := repo.Save(context.Background(), n); !errors.Is(err, ErrInvalidEntity) {
			t.Errorf("Node %+v: expected ErrInvalidEntity, got %v", n, err)
		}
	}
}

func TestNodeRepository_Addresses(t *testing.T) {
	db, cleanup := testutil.SetupTestDBWithMigrations(t, "TestNodeRepository_Addresses")
	defer cleanup()

	d := saveTestDomain(t, NewDomainRepository(db), "henry")
	repo := NewNodeRepository(db)
	node, err := repo.Save(context.Background(), domain.Node{
		SystemID: "abc123",
		Hostname: "web01",
		DomainID: d.ID,
	})
	if err != nil {
		t.Fatalf("Failed to save node: %v", err)
	}

	ip := netip.MustParseAddr("10.0.0.5")
	if err := repo.AddAddress(context.Background(), node.ID, 0, ip); err != nil {
		t.Fatalf("Failed to add address: %v", err)
	}

	addrs, err := repo.GetAddresses(context.Background(), node.ID)
	if err != nil {
		t.Fatalf("Failed to get addresses: %v", err)
	}
	if len(addrs) != 1 || addrs[0].IP != ip {
		t.Fatalf("Unexpected addresses: %+v", addrs)
	}
	if addrs[0].SubnetID != 0 {
		t.Errorf("Expected SubnetID 0 for out-of-subnet address, got %d", addrs[0].SubnetID)
	}

	if err := repo.RemoveAddress(context.Background(), node.ID, ip); err != nil {
		t.Fatalf("Failed to remove address: %v", err)
	}
	if err := repo.RemoveAddress(context.Background(), node.ID, ip); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNodeRepository_DeleteCascadesAddresses(t *testing.T) {
	db, cleanup := testutil.SetupTestDBWithMigrations(t, "TestNodeRepository_DeleteCascades")
	defer cleanup()

	d := saveTestDomain(t, NewDomainRepository(db), "henry")
	repo := NewNodeRepository(db)
	node, err := repo.Save(context.Background(), domain.Node{
		SystemID: "abc123",
		Hostname: "web01",
		DomainID: d.ID,
	})
	if err != nil {
		t.Fatalf("Failed to save node: %v", err)
	}
	if err := repo.AddAddress(context.Background(), node.ID, 0, netip.MustParseAddr("10.0.0.5")); err != nil {
		t.Fatalf("Failed to add address: %v", err)
	}

	if err := repo.DeleteByID(context.Background(), node.ID); err != nil {
		t.Fatalf("Failed to delete node: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM static_ip_addresses").Scan(&count); err != nil {
		t.Fatalf("Failed to count addresses: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected addresses to cascade, %d left", count)
	}
}
