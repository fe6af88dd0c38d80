// src/database/database.go
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	stdlog "log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/username/momoflow/src/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var DB *sql.DB

func InitDB(databasePath string) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", databasePath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	// Limit open connections to 1 for SQLite to avoid locking issues
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		stdlog.Fatalf("failed to ping database: %v", err)
	}
	DB = db
	logger.L.Info("Database connection established with WAL mode, busy_timeout, and foreign_keys enabled.")
}

// RunMigrations applies the embedded schema migrations. Embedding keeps the
// binary and the tests self-contained regardless of working directory.
func RunMigrations() {
	if DB == nil {
		stdlog.Fatalf("database connection is not initialized before running migrations")
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		stdlog.Fatalf("could not load embedded migrations: %v", err)
	}

	driver, err := sqlite.WithInstance(DB, &sqlite.Config{})
	if err != nil {
		stdlog.Fatalf("could not create sqlite migration driver: %v", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		stdlog.Fatalf("migration instance creation failed: %v", err)
	}

	err = m.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.L.Info("No new database migrations to apply.")
		} else {
			stdlog.Fatalf("failed to apply migrations: %v", err)
		}
	} else {
		logger.L.Info("Database migrations applied successfully.")
	}
}
