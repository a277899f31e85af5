package migrations

import (
	"database/sql"
)

// GetPerformanceMigrations returns index-only migrations. The mapping
// queries join nodes, addresses and extra records per domain on every
// zone generation, so those join columns carry indexes.
func GetPerformanceMigrations() []Migration {
	return []Migration{
		{
			Version: 10,
			Name:    "add_performance_indices",
			Up: func(db *sql.DB) error {
				indices := []string{
					"CREATE INDEX IF NOT EXISTS idx_nodes_domain_id ON nodes(domain_id)",
					"CREATE INDEX IF NOT EXISTS idx_static_ip_addresses_node_id ON static_ip_addresses(node_id)",
					"CREATE INDEX IF NOT EXISTS idx_static_ip_addresses_subnet_id ON static_ip_addresses(subnet_id)",
					"CREATE INDEX IF NOT EXISTS idx_ip_ranges_subnet_id ON ip_ranges(subnet_id)",
					"CREATE INDEX IF NOT EXISTS idx_dnsresources_domain_id ON dnsresources(domain_id)",
					"CREATE INDEX IF NOT EXISTS idx_dnsdata_dnsresource_id ON dnsdata(dnsresource_id)",
				}

				for _, indexSQL := range indices {
					if _, err := db.Exec(indexSQL); err != nil {
						return err
					}
				}

				return nil
			},
			Down: func(db *sql.DB) error {
				indices := []string{
					"DROP INDEX IF EXISTS idx_nodes_domain_id",
					"DROP INDEX IF EXISTS idx_static_ip_addresses_node_id",
					"DROP INDEX IF EXISTS idx_static_ip_addresses_subnet_id",
					"DROP INDEX IF EXISTS idx_ip_ranges_subnet_id",
					"DROP INDEX IF EXISTS idx_dnsresources_domain_id",
					"DROP INDEX IF EXISTS idx_dnsdata_dnsresource_id",
				}

				for _, dropSQL := range indices {
					if _, err := db.Exec(dropSQL); err != nil {
						return err
					}
				}

				return nil
			},
		},
	}
}
