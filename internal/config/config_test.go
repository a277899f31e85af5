package config

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfig(t *testing.T) {
	config := NewConfig()

	if config == nil {
		t.Fatal("Expected non-nil config")
	}

	if config.DBPath != "~/maasdns/data/maasdns.db" {
		t.Errorf("Expected DBPath '~/maasdns/data/maasdns.db', got '%s'", config.DBPath)
	}

	if config.Port != "5240" {
		t.Errorf("Expected Port '5240', got '%s'", config.Port)
	}

	if config.MAASURL != "http://localhost:5240/MAAS" {
		t.Errorf("Expected default MAAS URL, got '%s'", config.MAASURL)
	}
}

func TestConfig_ControllerHost(t *testing.T) {
	config := NewConfig()
	config.MAASURL = "http://region.example.com:5240/MAAS"

	host, err := config.ControllerHost()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if host != "region.example.com" {
		t.Errorf("Expected 'region.example.com', got '%s'", host)
	}
}

func TestConfig_ControllerHost_Invalid(t *testing.T) {
	config := NewConfig()
	config.MAASURL = "not-a-url"

	if _, err := config.ControllerHost(); err == nil {
		t.Fatal("Expected error for URL without hostname")
	}
}

func TestConfig_expandPath_WithTilde(t *testing.T) {
	config := NewConfig()

	path := "~/test/path"
	expanded := config.expandPath(path)

	if strings.HasPrefix(expanded, "~/") {
		t.Errorf("Expected path to be expanded, got '%s'", expanded)
	}

	if !strings.HasSuffix(expanded, "test/path") {
		t.Errorf("Expected expanded path to end with 'test/path', got '%s'", expanded)
	}
}

func TestConfig_expandPath_WithoutTilde(t *testing.T) {
	config := NewConfig()

	path := "/absolute/path"
	expanded := config.expandPath(path)

	if expanded != path {
		t.Errorf("Expected path to remain unchanged, got '%s'", expanded)
	}
}

func TestConfig_InitializeDatabase_Success(t *testing.T) {
	config := NewConfig()

	tempDir, err := os.MkdirTemp("", "maasdns-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	config.DBPath = filepath.Join(tempDir, "test.db")

	db, err := config.InitializeDatabase()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer db.Close()

	// Verify foreign keys are enabled
	var fkEnabled bool
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled)
	if err != nil {
		t.Errorf("Failed to check foreign keys: %v", err)
	}
	if !fkEnabled {
		t.Error("Expected foreign keys to be enabled")
	}

	// Verify the inventory schema is in place
	var tableName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='domains'").Scan(&tableName)
	if err != nil {
		t.Errorf("Expected domains table to exist: %v", err)
	}
}

func TestConfig_InitializeDatabase_DirectoryCreation(t *testing.T) {
	config := NewConfig()

	tempDir, err := os.MkdirTemp("", "maasdns-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Set path to a nested directory that doesn't exist
	config.DBPath = filepath.Join(tempDir, "nested", "path", "test.db")

	db, err := config.InitializeDatabase()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer db.Close()

	dbDir := filepath.Dir(config.DBPath)
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		t.Errorf("Expected directory to be created: %s", dbDir)
	}
}

func TestConfig_runMigrations_Success(t *testing.T) {
	config := NewConfig()

	tempDir, err := os.MkdirTemp("", "maasdns-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	defer db.Close()

	err = config.runMigrations(db)
	if err != nil {
		t.Errorf("Expected no error running migrations, got %v", err)
	}

	var tableName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_migrations'").Scan(&tableName)
	if err != nil {
		t.Errorf("Expected schema_migrations table to exist: %v", err)
	}
}

func TestConfig_runMigrations_DatabaseError(t *testing.T) {
	config := NewConfig()

	tempDir, err := os.MkdirTemp("", "maasdns-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.Close() // Closed on purpose to force errors

	err = config.runMigrations(db)
	if err == nil {
		t.Fatal("Expected error running migrations on closed database")
	}
}
