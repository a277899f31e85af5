package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/canonical/maas-sub008/internal/domain"
)

// DomainRepository defines domain-specific operations for DNS domains
type DomainRepository interface {
	Repository[domain.Domain, int64]
	FindByName(ctx context.Context, name string) (domain.Domain, error)
}

type domainRepositoryImpl struct {
	db *sql.DB
}

// NewDomainRepository creates a new domain repository
func NewDomainRepository(db *sql.DB) DomainRepository {
	return &domainRepositoryImpl{db: db}
}

// Save creates or updates a domain
func (r *domainRepositoryImpl) Save(ctx context.Context, d domain.Domain) (domain.Domain, error) {
	if d.Name == "" {
		return domain.Domain{}, fmt.Errorf("domain name is required: %w", ErrInvalidEntity)
	}
	if d.ID == 0 {
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO domains (name, ttl, authoritative)
			VALUES (?, ?, ?)`,
			d.Name, d.TTL, boolToInt(d.Authoritative))
		if err != nil {
			return domain.Domain{}, fmt.Errorf("failed to create domain: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return domain.Domain{}, fmt.Errorf("failed to get domain ID: %w", err)
		}
		d.ID = id
		return d, nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE domains
		SET name = ?, ttl = ?, authoritative = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		d.Name, d.TTL, boolToInt(d.Authoritative), d.ID)
	if err != nil {
		return domain.Domain{}, fmt.Errorf("failed to update domain: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Domain{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Domain{}, fmt.Errorf("domain %d: %w", d.ID, ErrNotFound)
	}
	return d, nil
}

// FindByID finds a domain by ID
func (r *domainRepositoryImpl) FindByID(ctx context.Context, id int64) (domain.Domain, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, name, ttl, authoritative
		FROM domains WHERE id = ?`, id), fmt.Sprintf("domain %d", id))
}

// FindByName finds a domain by its zone name
func (r *domainRepositoryImpl) FindByName(ctx context.Context, name string) (domain.Domain, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, name, ttl, authoritative
		FROM domains WHERE name = ?`, name), fmt.Sprintf("domain %q", name))
}

func (r *domainRepositoryImpl) scanOne(row *sql.Row, what string) (domain.Domain, error) {
	var d domain.Domain
	var authoritative int64
	err := row.Scan(&d.ID, &d.Name, &d.TTL, &authoritative)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Domain{}, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return domain.Domain{}, fmt.Errorf("failed to find %s: %w", what, err)
	}
	d.Authoritative = authoritative != 0
	return d, nil
}

// FindAll finds all domains in insertion order. The first inserted
// domain is the installation's default domain.
func (r *domainRepositoryImpl) FindAll(ctx context.Context) ([]domain.Domain, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, ttl, authoritative
		FROM domains ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to find domains: %w", err)
	}
	defer rows.Close()

	var domains []domain.Domain
	for rows.Next() {
		var d domain.Domain
		var authoritative int64
		if err := rows.Scan(&d.ID, &d.Name, &d.TTL, &authoritative); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		d.Authoritative = authoritative != 0
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating domains: %w", err)
	}
	return domains, nil
}

// DeleteByID deletes a domain by ID
func (r *domainRepositoryImpl) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM domains WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete domain: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("domain %d: %w", id, ErrNotFound)
	}
	return nil
}

// ExistsByID checks if a domain exists by ID
func (r *domainRepositoryImpl) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM domains WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check domain existence: %w", err)
	}
	return count > 0, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
