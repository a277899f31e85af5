package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"

	"github.com/canonical/maas-sub008/internal/domain"
)

// SubnetRepository defines domain-specific operations for subnets.
// FindAll and FindByID return subnets with their dynamic ranges
// populated, ready to hand to the zone generator.
type SubnetRepository interface {
	Repository[domain.Subnet, int64]
	FindByCIDR(ctx context.Context, cidr string) (domain.Subnet, error)
	AddDynamicRange(ctx context.Context, subnetID int64, r domain.IPRange) error
}

type subnetRepositoryImpl struct {
	db *sql.DB
}

// NewSubnetRepository creates a new subnet repository
func NewSubnetRepository(db *sql.DB) SubnetRepository {
	return &subnetRepositoryImpl{db: db}
}

// Save creates or updates a subnet
func (r *subnetRepositoryImpl) Save(ctx context.Context, s domain.Subnet) (domain.Subnet, error) {
	if s.CIDR == "" {
		return domain.Subnet{}, fmt.Errorf("subnet cidr is required: %w", ErrInvalidEntity)
	}
	if _, err := netip.ParsePrefix(s.CIDR); err != nil {
		return domain.Subnet{}, fmt.Errorf("subnet cidr %q: %w", s.CIDR, ErrInvalidEntity)
	}
	if s.Name == "" {
		s.Name = s.CIDR
	}
	if s.ID == 0 {
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO subnets (name, cidr, allow_dns, rdns_mode)
			VALUES (?, ?, ?, ?)`,
			s.Name, s.CIDR, boolToInt(s.AllowDNS), int(s.RDNSMode))
		if err != nil {
			return domain.Subnet{}, fmt.Errorf("failed to create subnet: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return domain.Subnet{}, fmt.Errorf("failed to get subnet ID: %w", err)
		}
		s.ID = id
		return s, nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE subnets
		SET name = ?, cidr = ?, allow_dns = ?, rdns_mode = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		s.Name, s.CIDR, boolToInt(s.AllowDNS), int(s.RDNSMode), s.ID)
	if err != nil {
		return domain.Subnet{}, fmt.Errorf("failed to update subnet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Subnet{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Subnet{}, fmt.Errorf("subnet %d: %w", s.ID, ErrNotFound)
	}
	return s, nil
}

// FindByID finds a subnet by ID, including its dynamic ranges
func (r *subnetRepositoryImpl) FindByID(ctx context.Context, id int64) (domain.Subnet, error) {
	s, err := r.scanOne(ctx, r.db.QueryRowContext(ctx, `
		SELECT id, name, cidr, allow_dns, rdns_mode
		FROM subnets WHERE id = ?`, id), fmt.Sprintf("subnet %d", id))
	if err != nil {
		return domain.Subnet{}, err
	}
	return r.withRanges(ctx, s)
}

// FindByCIDR finds a subnet by its network
func (r *subnetRepositoryImpl) FindByCIDR(ctx context.Context, cidr string) (domain.Subnet, error) {
	s, err := r.scanOne(ctx, r.db.QueryRowContext(ctx, `
		SELECT id, name, cidr, allow_dns, rdns_mode
		FROM subnets WHERE cidr = ?`, cidr), fmt.Sprintf("subnet %q", cidr))
	if err != nil {
		return domain.Subnet{}, err
	}
	return r.withRanges(ctx, s)
}

func (r *subnetRepositoryImpl) scanOne(_ context.Context, row *sql.Row, what string) (domain.Subnet, error) {
	var s domain.Subnet
	var allowDNS, rdnsMode int64
	err := row.Scan(&s.ID, &s.Name, &s.CIDR, &allowDNS, &rdnsMode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Subnet{}, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return domain.Subnet{}, fmt.Errorf("failed to find %s: %w", what, err)
	}
	s.AllowDNS = allowDNS != 0
	s.RDNSMode = domain.RDNSMode(rdnsMode)
	return s, nil
}

// FindAll finds all subnets, including their dynamic ranges
func (r *subnetRepositoryImpl) FindAll(ctx context.Context) ([]domain.Subnet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, cidr, allow_dns, rdns_mode
		FROM subnets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to find subnets: %w", err)
	}
	defer rows.Close()

	var subnets []domain.Subnet
	for rows.Next() {
		var s domain.Subnet
		var allowDNS, rdnsMode int64
		if err := rows.Scan(&s.ID, &s.Name, &s.CIDR, &allowDNS, &rdnsMode); err != nil {
			return nil, fmt.Errorf("failed to scan subnet: %w", err)
		}
		s.AllowDNS = allowDNS != 0
		s.RDNSMode = domain.RDNSMode(rdnsMode)
		subnets = append(subnets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subnets: %w", err)
	}

	for i := range subnets {
		subnets[i], err = r.withRanges(ctx, subnets[i])
		if err != nil {
			return nil, err
		}
	}
	return subnets, nil
}

func (r *subnetRepositoryImpl) withRanges(ctx context.Context, s domain.Subnet) (domain.Subnet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT start_ip, end_ip
		FROM ip_ranges WHERE subnet_id = ? AND range_type = 'dynamic'
		ORDER BY start_ip`, s.ID)
	if err != nil {
		return domain.Subnet{}, fmt.Errorf("failed to get dynamic ranges: %w", err)
	}
	defer rows.Close()

	s.DynamicRanges = nil
	for rows.Next() {
		var startIP, endIP string
		if err := rows.Scan(&startIP, &endIP); err != nil {
			return domain.Subnet{}, fmt.Errorf("failed to scan dynamic range: %w", err)
		}
		start, err := netip.ParseAddr(startIP)
		if err != nil {
			return domain.Subnet{}, fmt.Errorf("invalid range start %q: %w", startIP, err)
		}
		end, err := netip.ParseAddr(endIP)
		if err != nil {
			return domain.Subnet{}, fmt.Errorf("invalid range end %q: %w", endIP, err)
		}
		s.DynamicRanges = append(s.DynamicRanges, domain.IPRange{Start: start, End: end})
	}
	if err := rows.Err(); err != nil {
		return domain.Subnet{}, fmt.Errorf("error iterating dynamic ranges: %w", err)
	}
	return s, nil
}

// AddDynamicRange attaches a dynamic allocation range to a subnet
func (r *subnetRepositoryImpl) AddDynamicRange(ctx context.Context, subnetID int64, rng domain.IPRange) error {
	if !rng.Start.IsValid() || !rng.End.IsValid() || rng.Start.Compare(rng.End) > 0 {
		return fmt.Errorf("invalid dynamic range: %w", ErrInvalidEntity)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ip_ranges (subnet_id, range_type, start_ip, end_ip)
		VALUES (?, 'dynamic', ?, ?)`,
		subnetID, rng.Start.String(), rng.End.String())
	if err != nil {
		return fmt.Errorf("failed to add dynamic range: %w", err)
	}
	return nil
}

// DeleteByID deletes a subnet by ID
func (r *subnetRepositoryImpl) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM subnets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete subnet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("subnet %d: %w", id, ErrNotFound)
	}
	return nil
}

// ExistsByID checks if a subnet exists by ID
func (r *subnetRepositoryImpl) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subnets WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check subnet existence: %w", err)
	}
	return count > 0, nil
}
