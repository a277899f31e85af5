package migrations

import (
	"database/sql"
)

// GetInitialMigrations returns the migrations creating the DNS inventory
// schema: domains, subnets with their ranges, nodes with static
// addresses, and the extra-record tables (dnsresources/dnsdata).
//
// TTL columns use 0 to mean "inherit": node address_ttl falls back to
// the domain ttl, which falls back to the service-wide default.
func GetInitialMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_inventory_tables",
			Up: func(db *sql.DB) error {
				statements := []string{
					`CREATE TABLE domains (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL UNIQUE,
						ttl INTEGER NOT NULL DEFAULT 0,
						authoritative INTEGER NOT NULL DEFAULT 1,
						created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE TABLE subnets (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL,
						cidr TEXT NOT NULL UNIQUE,
						allow_dns INTEGER NOT NULL DEFAULT 1,
						rdns_mode INTEGER NOT NULL DEFAULT 2,
						created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE TABLE ip_ranges (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						subnet_id INTEGER NOT NULL,
						range_type TEXT NOT NULL DEFAULT 'dynamic',
						start_ip TEXT NOT NULL,
						end_ip TEXT NOT NULL,
						FOREIGN KEY (subnet_id) REFERENCES subnets(id) ON DELETE CASCADE
					)`,
					`CREATE TABLE nodes (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						system_id TEXT NOT NULL UNIQUE,
						hostname TEXT NOT NULL,
						domain_id INTEGER NOT NULL,
						node_type INTEGER NOT NULL DEFAULT 0,
						address_ttl INTEGER NOT NULL DEFAULT 0,
						created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
						FOREIGN KEY (domain_id) REFERENCES domains(id),
						UNIQUE (hostname, domain_id)
					)`,
					`CREATE TABLE static_ip_addresses (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						node_id INTEGER NOT NULL,
						subnet_id INTEGER,
						ip TEXT NOT NULL,
						FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE,
						FOREIGN KEY (subnet_id) REFERENCES subnets(id),
						UNIQUE (node_id, ip)
					)`,
					`CREATE TABLE dnsresources (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL,
						domain_id INTEGER NOT NULL,
						address_ttl INTEGER NOT NULL DEFAULT 0,
						FOREIGN KEY (domain_id) REFERENCES domains(id) ON DELETE CASCADE,
						UNIQUE (name, domain_id)
					)`,
					`CREATE TABLE dnsresource_ip_addresses (
						dnsresource_id INTEGER NOT NULL,
						ip TEXT NOT NULL,
						PRIMARY KEY (dnsresource_id, ip),
						FOREIGN KEY (dnsresource_id) REFERENCES dnsresources(id) ON DELETE CASCADE
					)`,
					`CREATE TABLE dnsdata (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						dnsresource_id INTEGER NOT NULL,
						rrtype TEXT NOT NULL,
						rrdata TEXT NOT NULL,
						ttl INTEGER NOT NULL DEFAULT 0,
						FOREIGN KEY (dnsresource_id) REFERENCES dnsresources(id) ON DELETE CASCADE
					)`,
				}
				for _, stmt := range statements {
					if _, err := db.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
			Down: func(db *sql.DB) error {
				tables := []string{
					"dnsdata",
					"dnsresource_ip_addresses",
					"dnsresources",
					"static_ip_addresses",
					"nodes",
					"ip_ranges",
					"subnets",
					"domains",
				}
				for _, table := range tables {
					if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
