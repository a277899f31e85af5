package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"

	"github.com/canonical/maas-sub008/internal/domain"
)

// DNSResourceRepository defines domain-specific operations for
// operator-declared names and their records.
type DNSResourceRepository interface {
	Repository[domain.DNSResource, int64]
	FindByName(ctx context.Context, domainID int64, name string) (domain.DNSResource, error)
	GetAddresses(ctx context.Context, resourceID int64) ([]netip.Addr, error)
	AddAddress(ctx context.Context, resourceID int64, ip netip.Addr) error
	GetRecords(ctx context.Context, resourceID int64) ([]domain.DNSData, error)
	AddRecord(ctx context.Context, record domain.DNSData) (domain.DNSData, error)
}

type dnsResourceRepositoryImpl struct {
	db *sql.DB
}

// NewDNSResourceRepository creates a new dnsresource repository
func NewDNSResourceRepository(db *sql.DB) DNSResourceRepository {
	return &dnsResourceRepositoryImpl{db: db}
}

// Save creates or updates a dnsresource
func (r *dnsResourceRepositoryImpl) Save(ctx context.Context, res domain.DNSResource) (domain.DNSResource, error) {
	if res.Name == "" {
		return domain.DNSResource{}, fmt.Errorf("dnsresource name is required: %w", ErrInvalidEntity)
	}
	if res.DomainID == 0 {
		return domain.DNSResource{}, fmt.Errorf("dnsresource domain is required: %w", ErrInvalidEntity)
	}
	if res.ID == 0 {
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO dnsresources (name, domain_id, address_ttl)
			VALUES (?, ?, ?)`,
			res.Name, res.DomainID, res.AddressTTL)
		if err != nil {
			return domain.DNSResource{}, fmt.Errorf("failed to create dnsresource: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return domain.DNSResource{}, fmt.Errorf("failed to get dnsresource ID: %w", err)
		}
		res.ID = id
		return res, nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE dnsresources
		SET name = ?, domain_id = ?, address_ttl = ?
		WHERE id = ?`,
		res.Name, res.DomainID, res.AddressTTL, res.ID)
	if err != nil {
		return domain.DNSResource{}, fmt.Errorf("failed to update dnsresource: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.DNSResource{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.DNSResource{}, fmt.Errorf("dnsresource %d: %w", res.ID, ErrNotFound)
	}
	return res, nil
}

// FindByID finds a dnsresource by ID
func (r *dnsResourceRepositoryImpl) FindByID(ctx context.Context, id int64) (domain.DNSResource, error) {
	return scanDNSResource(r.db.QueryRowContext(ctx, `
		SELECT id, name, domain_id, address_ttl
		FROM dnsresources WHERE id = ?`, id), fmt.Sprintf("dnsresource %d", id))
}

// FindByName finds a dnsresource by its name within a domain
func (r *dnsResourceRepositoryImpl) FindByName(ctx context.Context, domainID int64, name string) (domain.DNSResource, error) {
	return scanDNSResource(r.db.QueryRowContext(ctx, `
		SELECT id, name, domain_id, address_ttl
		FROM dnsresources WHERE domain_id = ? AND name = ?`, domainID, name),
		fmt.Sprintf("dnsresource %q", name))
}

func scanDNSResource(row *sql.Row, what string) (domain.DNSResource, error) {
	var res domain.DNSResource
	err := row.Scan(&res.ID, &res.Name, &res.DomainID, &res.AddressTTL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DNSResource{}, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return domain.DNSResource{}, fmt.Errorf("failed to find %s: %w", what, err)
	}
	return res, nil
}

// FindAll finds all dnsresources
func (r *dnsResourceRepositoryImpl) FindAll(ctx context.Context) ([]domain.DNSResource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, domain_id, address_ttl
		FROM dnsresources ORDER BY domain_id, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to find dnsresources: %w", err)
	}
	defer rows.Close()

	var resources []domain.DNSResource
	for rows.Next() {
		var res domain.DNSResource
		if err := rows.Scan(&res.ID, &res.Name, &res.DomainID, &res.AddressTTL); err != nil {
			return nil, fmt.Errorf("failed to scan dnsresource: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dnsresources: %w", err)
	}
	return resources, nil
}

// DeleteByID deletes a dnsresource by ID; its addresses and records cascade
func (r *dnsResourceRepositoryImpl) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM dnsresources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete dnsresource: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("dnsresource %d: %w", id, ErrNotFound)
	}
	return nil
}

// ExistsByID checks if a dnsresource exists by ID
func (r *dnsResourceRepositoryImpl) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM dnsresources WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check dnsresource existence: %w", err)
	}
	return count > 0, nil
}

// GetAddresses returns a dnsresource's addresses
func (r *dnsResourceRepositoryImpl) GetAddresses(ctx context.Context, resourceID int64) ([]netip.Addr, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ip FROM dnsresource_ip_addresses
		WHERE dnsresource_id = ? ORDER BY ip`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dnsresource addresses: %w", err)
	}
	defer rows.Close()

	var addrs []netip.Addr
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan dnsresource address: %w", err)
		}
		ip, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid stored address %q: %w", raw, err)
		}
		addrs = append(addrs, ip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dnsresource addresses: %w", err)
	}
	return addrs, nil
}

// AddAddress attaches an address to a dnsresource
func (r *dnsResourceRepositoryImpl) AddAddress(ctx context.Context, resourceID int64, ip netip.Addr) error {
	if !ip.IsValid() {
		return fmt.Errorf("invalid address: %w", ErrInvalidEntity)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dnsresource_ip_addresses (dnsresource_id, ip)
		VALUES (?, ?)`, resourceID, ip.String())
	if err != nil {
		return fmt.Errorf("failed to add dnsresource address: %w", err)
	}
	return nil
}

// GetRecords returns a dnsresource's non-address records
func (r *dnsResourceRepositoryImpl) GetRecords(ctx context.Context, resourceID int64) ([]domain.DNSData, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, dnsresource_id, rrtype, rrdata, ttl
		FROM dnsdata WHERE dnsresource_id = ? ORDER BY id`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dnsresource records: %w", err)
	}
	defer rows.Close()

	var records []domain.DNSData
	for rows.Next() {
		var rec domain.DNSData
		if err := rows.Scan(&rec.ID, &rec.DNSResourceID, &rec.RRType, &rec.RRData, &rec.TTL); err != nil {
			return nil, fmt.Errorf("failed to scan dnsresource record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dnsresource records: %w", err)
	}
	return records, nil
}

// AddRecord attaches a non-address record to a dnsresource
func (r *dnsResourceRepositoryImpl) AddRecord(ctx context.Context, record domain.DNSData) (domain.DNSData, error) {
	if record.DNSResourceID == 0 || record.RRType == "" || record.RRData == "" {
		return domain.DNSData{}, fmt.Errorf("incomplete record: %w", ErrInvalidEntity)
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO dnsdata (dnsresource_id, rrtype, rrdata, ttl)
		VALUES (?, ?, ?, ?)`,
		record.DNSResourceID, record.RRType, record.RRData, record.TTL)
	if err != nil {
		return domain.DNSData{}, fmt.Errorf("failed to add dnsresource record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.DNSData{}, fmt.Errorf("failed to get record ID: %w", err)
	}
	record.ID = id
	return record, nil
}
