// store/migrate.go
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies every pending migration for the store's dialect and
// returns the resulting schema version.
func (s *Store) Migrate() (uint, error) {
	src, err := iofs.New(migrations, "migrations/"+s.dialect.name)
	if err != nil {
		return 0, fmt.Errorf("load migrations: %w", err)
	}

	drv, err := s.migrationDriver()
	if err != nil {
		return 0, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect.name, drv)
	if err != nil {
		return 0, fmt.Errorf("init migrations: %w", err)
	}
	// m.Close would also close s.db, which the Store still owns.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

func (s *Store) migrationDriver() (database.Driver, error) {
	db, ok := s.q.(*sql.DB)
	if !ok {
		return nil, errors.New("migrations cannot run inside a transaction")
	}

	switch s.dialect.name {
	case postgresDialect.name:
		return migratepgx.WithInstance(db, &migratepgx.Config{})
	case mysqlDialect.name:
		return migratemysql.WithInstance(db, &migratemysql.Config{})
	default:
		return migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
}
