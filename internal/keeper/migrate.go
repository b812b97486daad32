package keeper

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/cryptkeeper/internal/keeper/migrations"
	"github.com/pressly/goose/v3"
)

// Dialects understood by RunMigrations. The value doubles as the directory
// of the embedded migrations.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var gooseDialects = map[string]string{
	DialectSQLite:   "sqlite3",
	DialectPostgres: "pgx",
}

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema for dialect to db.
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	gd, ok := gooseDialects[dialect]
	if !ok {
		return fmt.Errorf("unknown keeper dialect %q", dialect)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gd); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db, dialect); err != nil {
		return fmt.Errorf("migrate keeper: %w", err)
	}
	return nil
}
