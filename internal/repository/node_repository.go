package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"

	"github.com/canonical/maas-sub008/internal/domain"
)

// NodeRepository defines domain-specific operations for nodes and their
// static addresses.
type NodeRepository interface {
	Repository[domain.Node, int64]
	FindBySystemID(ctx context.Context, systemID string) (domain.Node, error)
	GetAddresses(ctx context.Context, nodeID int64) ([]domain.StaticIPAddress, error)
	AddAddress(ctx context.Context, nodeID, subnetID int64, ip netip.Addr) error
	RemoveAddress(ctx context.Context, nodeID int64, ip netip.Addr) error
}

type nodeRepositoryImpl struct {
	db *sql.DB
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(db *sql.DB) NodeRepository {
	return &nodeRepositoryImpl{db: db}
}

// Save creates or updates a node
func (r *nodeRepositoryImpl) Save(ctx context.Context, n domain.Node) (domain.Node, error) {
	if n.SystemID == "" {
		return domain.Node{}, fmt.Errorf("node system_id is required: %w", ErrInvalidEntity)
	}
	if n.Hostname == "" {
		return domain.Node{}, fmt.Errorf("node hostname is required: %w", ErrInvalidEntity)
	}
	if n.DomainID == 0 {
		return domain.Node{}, fmt.Errorf("node domain is required: %w", ErrInvalidEntity)
	}
	if n.ID == 0 {
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO nodes (system_id, hostname, domain_id, node_type, address_ttl)
			VALUES (?, ?, ?, ?, ?)`,
			n.SystemID, n.Hostname, n.DomainID, int(n.NodeType), n.AddressTTL)
		if err != nil {
			return domain.Node{}, fmt.Errorf("failed to create node: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return domain.Node{}, fmt.Errorf("failed to get node ID: %w", err)
		}
		n.ID = id
		return n, nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE nodes
		SET system_id = ?, hostname = ?, domain_id = ?, node_type = ?, address_ttl = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		n.SystemID, n.Hostname, n.DomainID, int(n.NodeType), n.AddressTTL, n.ID)
	if err != nil {
		return domain.Node{}, fmt.Errorf("failed to update node: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Node{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Node{}, fmt.Errorf("node %d: %w", n.ID, ErrNotFound)
	}
	return n, nil
}

// FindByID finds a node by ID
func (r *nodeRepositoryImpl) FindByID(ctx context.Context, id int64) (domain.Node, error) {
	return scanNode(r.db.QueryRowContext(ctx, `
		SELECT id, system_id, hostname, domain_id, node_type, address_ttl
		FROM nodes WHERE id = ?`, id), fmt.Sprintf("node %d", id))
}

// FindBySystemID finds a node by its stable external identifier
func (r *nodeRepositoryImpl) FindBySystemID(ctx context.Context, systemID string) (domain.Node, error) {
	return scanNode(r.db.QueryRowContext(ctx, `
		SELECT id, system_id, hostname, domain_id, node_type, address_ttl
		FROM nodes WHERE system_id = ?`, systemID), fmt.Sprintf("node %q", systemID))
}

func scanNode(row *sql.Row, what string) (domain.Node, error) {
	var n domain.Node
	var nodeType int64
	err := row.Scan(&n.ID, &n.SystemID, &n.Hostname, &n.DomainID, &nodeType, &n.AddressTTL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Node{}, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return domain.Node{}, fmt.Errorf("failed to find %s: %w", what, err)
	}
	n.NodeType = domain.NodeType(nodeType)
	return n, nil
}

// FindAll finds all nodes
func (r *nodeRepositoryImpl) FindAll(ctx context.Context) ([]domain.Node, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, system_id, hostname, domain_id, node_type, address_ttl
		FROM nodes ORDER BY hostname`)
	if err != nil {
		return nil, fmt.Errorf("failed to find nodes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		var n domain.Node
		var nodeType int64
		if err := rows.Scan(&n.ID, &n.SystemID, &n.Hostname, &n.DomainID, &nodeType, &n.AddressTTL); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.NodeType = domain.NodeType(nodeType)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}

// DeleteByID deletes a node by ID; its addresses cascade
func (r *nodeRepositoryImpl) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return nil
}

// ExistsByID checks if a node exists by ID
func (r *nodeRepositoryImpl) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM nodes WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check node existence: %w", err)
	}
	return count > 0, nil
}

// GetAddresses returns all static addresses of a node
func (r *nodeRepositoryImpl) GetAddresses(ctx context.Context, nodeID int64) ([]domain.StaticIPAddress, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, node_id, COALESCE(subnet_id, 0), ip
		FROM static_ip_addresses WHERE node_id = ? ORDER BY ip`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get node addresses: %w", err)
	}
	defer rows.Close()

	var addrs []domain.StaticIPAddress
	for rows.Next() {
		var a domain.StaticIPAddress
		var raw string
		if err := rows.Scan(&a.ID, &a.NodeID, &a.SubnetID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan node address: %w", err)
		}
		a.IP, err = netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid stored address %q: %w", raw, err)
		}
		addrs = append(addrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node addresses: %w", err)
	}
	return addrs, nil
}

// AddAddress assigns a static address to a node. subnetID 0 records an
// address outside every known subnet.
func (r *nodeRepositoryImpl) AddAddress(ctx context.Context, nodeID, subnetID int64, ip netip.Addr) error {
	if !ip.IsValid() {
		return fmt.Errorf("invalid address: %w", ErrInvalidEntity)
	}
	var subnet any
	if subnetID != 0 {
		subnet = subnetID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO static_ip_addresses (node_id, subnet_id, ip)
		VALUES (?, ?, ?)`, nodeID, subnet, ip.String())
	if err != nil {
		return fmt.Errorf("failed to add node address: %w", err)
	}
	return nil
}

// RemoveAddress removes a static address from a node
func (r *nodeRepositoryImpl) RemoveAddress(ctx context.Context, nodeID int64, ip netip.Addr) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM static_ip_addresses WHERE node_id = ? AND ip = ?", nodeID, ip.String())
	if err != nil {
		return fmt.Errorf("failed to remove node address: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("address %s on node %d: %w", ip, nodeID, ErrNotFound)
	}
	return nil
}
