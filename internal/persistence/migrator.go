package persistence

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	_ "github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/persistence/migrations"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrationSetupOnce sync.Once

func setupGoose() error {
	var setupErr error
	migrationSetupOnce.Do(func() {
		goose.SetBaseFS(migrationFS)
		setupErr = goose.SetDialect("sqlite3")
	})
	if setupErr != nil {
		return fmt.Errorf("setup goose: %w", setupErr)
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrateTo applies migrations up to and including version.
func migrateTo(db *sql.DB, version int64) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.UpTo(db, "migrations", version); err != nil {
		return fmt.Errorf("migrate to %d: %w", version, err)
	}
	return nil
}
