package config

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/canonical/maas-sub008/internal/migrations"
	_ "modernc.org/sqlite"
)

// Config holds all configuration for the zone generation service
type Config struct {
	DBPath string
	Port   string
	// ZoneDir is where generated zone files and the named.conf include
	// are written.
	ZoneDir string
	// MAASURL is the URL this controller is reachable at; its hostname
	// becomes the name server name published in generated zones.
	MAASURL string
	// DefaultTTL overrides the built-in default record TTL when non-zero.
	DefaultTTL uint32
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		DBPath:  "~/maasdns/data/maasdns.db",
		Port:    "5240",
		ZoneDir: "~/maasdns/zones",
		MAASURL: "http://localhost:5240/MAAS",
	}
}

// ControllerHost extracts the hostname from the configured MAAS URL.
func (c *Config) ControllerHost() (string, error) {
	u, err := url.Parse(c.MAASURL)
	if err != nil {
		return "", fmt.Errorf("invalid MAAS URL %q: %w", c.MAASURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("MAAS URL %q has no hostname", c.MAASURL)
	}
	return host, nil
}

// ZoneDirectory returns the zone directory with ~ expanded.
func (c *Config) ZoneDirectory() string {
	return c.expandPath(c.ZoneDir)
}

// InitializeDatabase creates and configures the database connection
func (c *Config) InitializeDatabase() (*sql.DB, error) {
	dbPath := c.expandPath(c.DBPath)

	// Ensure database directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	OptimizeDatabaseConnection(db)

	if err := ApplyPragmaOptimizations(db); err != nil {
		return nil, fmt.Errorf("failed to apply performance optimizations: %w", err)
	}

	if err := c.runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// expandPath expands ~ to home directory
func (c *Config) expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Return original path if we can't get home dir
		return path
	}

	return filepath.Join(homeDir, path[2:])
}

// runMigrations runs all database migrations
func (c *Config) runMigrations(db *sql.DB) error {
	migrator := migrations.NewMigrator(db)

	for _, migration := range migrations.GetInitialMigrations() {
		migrator.AddMigration(migration)
	}
	for _, migration := range migrations.GetPerformanceMigrations() {
		migrator.AddMigration(migration)
	}

	return migrator.RunMigrations()
}
